// Package mercadopago provides a minimal Mercado Pago checkout client.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fornadaapp/fornada/internal/observability"
)

const DefaultBaseURL = "https://api.mercadopago.com"

// UpstreamError is returned when the Mercado Pago API answers with a non-2xx
// status or an unreadable body. It carries the provider's response so callers
// can surface it.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mercado pago %s failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client calls the Mercado Pago REST API with a per-tenant access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: observability.NewHTTPClient(15 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PreferenceItem is one purchasable line in a checkout preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type PreferencePayerPhone struct {
	Number string `json:"number"`
}

type PreferencePayerAddress struct {
	StreetName string `json:"street_name"`
}

type PreferencePayer struct {
	Name    string                 `json:"name"`
	Email   string                 `json:"email"`
	Phone   PreferencePayerPhone   `json:"phone"`
	Address PreferencePayerAddress `json:"address"`
}

type PreferenceBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the payload for POST /checkout/preferences.
// ExternalReference carries the order id and is echoed back in payment
// records; it is the only correlation key between provider and local state.
type PreferenceRequest struct {
	Items             []PreferenceItem   `json:"items"`
	Payer             PreferencePayer    `json:"payer"`
	BackURLs          PreferenceBackURLs `json:"back_urls"`
	AutoReturn        string             `json:"auto_return"`
	ExternalReference string             `json:"external_reference"`
	NotificationURL   string             `json:"notification_url"`
}

// Preference is the subset of the created preference the checkout flow needs.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Payment is the authoritative payment record fetched from
// GET /v1/payments/{id}.
type Payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
}

// CreatePreference registers a checkout preference and returns the hosted
// checkout redirect target. One call per invocation; failures are not retried
// here because checkout creation is user-initiated and resubmittable.
func (c *Client) CreatePreference(ctx context.Context, accessToken string, req PreferenceRequest) (*Preference, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preference: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build preference request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call mercado pago: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Operation: "create preference", StatusCode: resp.StatusCode, Body: "unreadable response body"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Operation: "create preference", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var preference Preference
	if err := json.Unmarshal(body, &preference); err != nil {
		return nil, &UpstreamError{Operation: "create preference", StatusCode: resp.StatusCode, Body: string(body)}
	}
	if preference.ID == "" || preference.InitPoint == "" {
		return nil, &UpstreamError{Operation: "create preference", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &preference, nil
}

// GetPayment fetches the authoritative payment record. Webhook notifications
// are never trusted as complete or authentic; reconciliation always goes
// through this second fetch.
func (c *Client) GetPayment(ctx context.Context, accessToken, paymentID string) (*Payment, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment details: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Operation: "get payment", StatusCode: resp.StatusCode, Body: "unreadable response body"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Operation: "get payment", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, &UpstreamError{Operation: "get payment", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &payment, nil
}

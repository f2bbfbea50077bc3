package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/fornadaapp/fornada/internal/auth"
	"github.com/fornadaapp/fornada/internal/config"
	"github.com/fornadaapp/fornada/internal/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrGoogleUnavailable  = errors.New("google login is not configured")
	ErrAuthInvalidCode    = errors.New("oauth code is required")
	ErrAuthCodeExchange   = errors.New("failed to exchange oauth code")
	ErrAuthGenerateState  = errors.New("failed to generate oauth state")
	ErrNoMerchantAccount  = errors.New("no merchant account for this google user")
)

// AuthService authenticates merchants for the admin area and customers for
// the storefront. Merchants get server side sessions, customers get tokens.
type AuthService struct {
	merchants   *db.MerchantStore
	customers   *db.CustomerStore
	tokens      *auth.TokenIssuer
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewAuthService(cfg *config.Config, merchants *db.MerchantStore, customers *db.CustomerStore, logger *slog.Logger) (*AuthService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth service config is required")
	}
	if merchants == nil || customers == nil {
		return nil, fmt.Errorf("auth service stores are required")
	}

	s := &AuthService{
		merchants:  merchants,
		customers:  customers,
		tokens:     auth.NewTokenIssuer(cfg.JWTSecret),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}

	if cfg.GoogleLoginEnabled() {
		s.oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback",
		}
	}

	return s, nil
}

// LoginMerchant verifies an email and password pair.
func (s *AuthService) LoginMerchant(ctx context.Context, email, password string) (*db.MerchantUser, error) {
	user, err := s.merchants.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, db.ErrMerchantNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up merchant: %w", err)
	}

	if user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

type StartGoogleLoginResult struct {
	State            string
	AuthorizationURL string
}

func (s *AuthService) GoogleLoginEnabled() bool {
	return s != nil && s.oauthConfig != nil
}

func (s *AuthService) StartGoogleLogin() (StartGoogleLoginResult, error) {
	result := StartGoogleLoginResult{}
	if !s.GoogleLoginEnabled() {
		return result, ErrGoogleUnavailable
	}

	state, err := generateOAuthState()
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrAuthGenerateState, err)
	}

	result.State = state
	result.AuthorizationURL = s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	return result, nil
}

type googleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CompleteGoogleOAuth exchanges the callback code and resolves the merchant
// account. Google accounts are matched by id first and linked by email on
// first login.
func (s *AuthService) CompleteGoogleOAuth(ctx context.Context, code string) (*db.MerchantUser, error) {
	if !s.GoogleLoginEnabled() {
		return nil, ErrGoogleUnavailable
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrAuthInvalidCode
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthCodeExchange, err)
	}

	gUser, err := s.getGoogleUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.merchants.GetByGoogleID(ctx, gUser.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrMerchantNotFound) {
		return nil, fmt.Errorf("failed to look up merchant by google id: %w", err)
	}

	user, err = s.merchants.GetByEmail(ctx, strings.ToLower(gUser.Email))
	if err != nil {
		if errors.Is(err, db.ErrMerchantNotFound) {
			return nil, ErrNoMerchantAccount
		}
		return nil, fmt.Errorf("failed to look up merchant by email: %w", err)
	}

	if err := s.merchants.LinkGoogleID(ctx, user.ID, gUser.ID); err != nil {
		s.logger.Warn("failed to link google account", "error", err, "user_id", user.ID)
	}
	return user, nil
}

func (s *AuthService) getGoogleUser(ctx context.Context, accessToken string) (*googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && s.logger != nil {
			s.logger.Warn("failed to close google userinfo response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("google API returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("google API returned status %d: %s", resp.StatusCode, string(body))
	}

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

type RegisterCustomerInput struct {
	TenantID uuid.UUID
	FullName string
	Email    string
	Phone    string
	Address  string
	Password string
}

type CustomerAuthResult struct {
	Customer *db.Customer `json:"customer"`
	Token    string       `json:"token"`
}

// RegisterCustomer creates a storefront account and returns a signed token.
func (s *AuthService) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*CustomerAuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: email and a password of at least 8 characters are required", ErrOrderInvalidInput)
	}

	if _, err := s.customers.GetByTenantAndEmail(ctx, input.TenantID, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, db.ErrCustomerNotFound) {
		return nil, fmt.Errorf("failed to check existing customer: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	customer := &db.Customer{
		TenantID:     input.TenantID,
		FullName:     input.FullName,
		Email:        email,
		Phone:        input.Phone,
		Address:      input.Address,
		PasswordHash: hash,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return s.issueCustomerToken(customer)
}

// LoginCustomer verifies storefront credentials and returns a signed token.
func (s *AuthService) LoginCustomer(ctx context.Context, tenantID uuid.UUID, email, password string) (*CustomerAuthResult, error) {
	customer, err := s.customers.GetByTenantAndEmail(ctx, tenantID, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, db.ErrCustomerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	if !auth.CheckPassword(customer.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issueCustomerToken(customer)
}

// VerifyCustomerToken parses a storefront bearer token.
func (s *AuthService) VerifyCustomerToken(tokenString string) (*auth.CustomerClaims, error) {
	return s.tokens.Verify(tokenString)
}

func (s *AuthService) issueCustomerToken(customer *db.Customer) (*CustomerAuthResult, error) {
	token, err := s.tokens.Issue(customer.ID, customer.TenantID, customer.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &CustomerAuthResult{Customer: customer, Token: token}, nil
}

func generateOAuthState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

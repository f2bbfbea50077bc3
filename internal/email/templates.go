package email

import (
	"bytes"
	"fmt"
	"text/template"
)

// OrderConfirmationInput feeds the confirmation sent to the buyer once a
// payment is approved.
type OrderConfirmationInput struct {
	PizzeriaName  string
	OrderNumber   int
	CustomerName  string
	CustomerEmail string
	Items         []OrderConfirmationItem
	Total         string
}

type OrderConfirmationItem struct {
	Name      string
	Quantity  int
	LineTotal string
}

const orderConfirmationText = `Olá {{.CustomerName}},

Recebemos o seu pagamento! O pedido #{{.OrderNumber}} já está na fila da {{.PizzeriaName}}.

Itens:
{{range .Items}}  {{.Quantity}}x {{.Name}} — R$ {{.LineTotal}}
{{end}}
Total: R$ {{.Total}}

Acompanhe o status do pedido pela página da loja.
`

var orderConfirmationTemplate = template.Must(template.New("order_confirmation").Parse(orderConfirmationText))

// RenderOrderConfirmation builds the confirmation email body.
func RenderOrderConfirmation(input OrderConfirmationInput) (*Email, error) {
	if input.CustomerEmail == "" {
		return nil, fmt.Errorf("customer email is required")
	}

	var body bytes.Buffer
	if err := orderConfirmationTemplate.Execute(&body, input); err != nil {
		return nil, fmt.Errorf("failed to render confirmation email: %w", err)
	}

	return &Email{
		To:      input.CustomerEmail,
		Subject: fmt.Sprintf("Pedido #%d confirmado — %s", input.OrderNumber, input.PizzeriaName),
		Text:    body.String(),
	}, nil
}

package email

import (
	"strings"
	"testing"
)

func TestRenderOrderConfirmation(t *testing.T) {
	t.Parallel()

	rendered, err := RenderOrderConfirmation(OrderConfirmationInput{
		PizzeriaName:  "Pizzaria do Bairro",
		OrderNumber:   17,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Items: []OrderConfirmationItem{
			{Name: "Margherita", Quantity: 1, LineTotal: "42.50"},
			{Name: "Guaraná 2L", Quantity: 2, LineTotal: "24.00"},
		},
		Total: "66.50",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rendered.To != "ana@example.com" {
		t.Fatalf("To = %q", rendered.To)
	}
	if !strings.Contains(rendered.Subject, "#17") {
		t.Fatalf("subject missing order number: %q", rendered.Subject)
	}
	for _, want := range []string{"Ana", "Margherita", "2x Guaraná 2L", "66.50"} {
		if !strings.Contains(rendered.Text, want) {
			t.Fatalf("body missing %q:\n%s", want, rendered.Text)
		}
	}
}

func TestRenderOrderConfirmation_RequiresEmail(t *testing.T) {
	t.Parallel()

	if _, err := RenderOrderConfirmation(OrderConfirmationInput{}); err == nil {
		t.Fatal("expected error without customer email")
	}
}

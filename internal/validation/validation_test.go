package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

func validCheckout() domain.Checkout {
	return domain.Checkout{
		Items: []domain.CartLine{{ProductID: "p1", Quantity: 1}},
		Contact: domain.Contact{
			Name:            "Ana",
			Email:           "ana@example.com",
			Phone:           "555",
			ShippingAddress: "Calle 1",
		},
		PaymentMethod: domain.PaymentBankTransfer,
	}
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(validCheckout()))

	tests := []struct {
		name   string
		mutate func(*domain.Checkout)
		field  string
	}{
		{"missing name", func(c *domain.Checkout) { c.Name = "" }, "customer_name"},
		{"bad email", func(c *domain.Checkout) { c.Email = "not-an-email" }, "customer_email"},
		{"missing address", func(c *domain.Checkout) { c.ShippingAddress = "" }, "shipping_address"},
		{"unknown payment method", func(c *domain.Checkout) { c.PaymentMethod = "tarjeta" }, "payment_method"},
		{"zero quantity", func(c *domain.Checkout) { c.Items[0].Quantity = 0 }, "items[0].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout := validCheckout()
			tt.mutate(&checkout)

			err := Struct(checkout)

			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

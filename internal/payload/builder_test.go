package payload

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

func testOrder(taxStatus string) *domain.Order {
	return &domain.Order{
		ID:          "0b6c4b9e-4f4a-4a4b-9d7e-111111111111",
		OrderNumber: "ORD1001",
		Currency:    "EUR",
		AmountTotal: decimal.RequireFromString("59.50"),
		AmountNet:   decimal.RequireFromString("50.00"),
		TaxStatus:   taxStatus,
	}
}

var testCustomer = &domain.Customer{
	ID:        "c-1",
	Email:     "jane@example.com",
	FirstName: "Jane",
	LastName:  "Doe",
	BillingAddress: &domain.Address{
		Line1:      "Hauptstr. 1",
		City:       "Berlin",
		Country:    "de",
		PostalCode: "10115",
	},
}

func TestBuild_TaxFreeUsesNetTotal(t *testing.T) {
	p, err := NewBuilder(false).Build(Input{
		Order:         testOrder(domain.TaxStatusTaxFree),
		OrderCustomer: testCustomer,
		ReturnURL:     "https://shop.example/checkout/finish",
		CancelURL:     "https://shop.example/trxps/payment/tx-1",
		WebhookURL:    "https://shop.example/trxps/webhook",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), p.Amount)
	assert.Equal(t, "ORD1001", p.Reference)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "Bestellung ORD1001", p.StatementDescriptor)
	assert.Equal(t, "https://shop.example/checkout/finish", p.SuccessURL)
	assert.Equal(t, "https://shop.example/trxps/payment/tx-1", p.CancelURL)
	assert.Equal(t, "https://shop.example/trxps/webhook", p.WebhookURL)
	require.NotNil(t, p.BillingAddress)
	assert.Equal(t, "DE", p.BillingAddress.Country)
	assert.Equal(t, "jane@example.com", p.Customer.Email)
}

func TestBuild_GrossUsesTotal(t *testing.T) {
	for _, status := range []string{domain.TaxStatusGross, domain.TaxStatusNet} {
		p, err := NewBuilder(false).Build(Input{Order: testOrder(status), OrderCustomer: testCustomer})
		require.NoError(t, err)
		assert.Equal(t, int64(5950), p.Amount, status)
	}
}

func TestBuild_LocalDevelopmentOmitsWebhook(t *testing.T) {
	p, err := NewBuilder(true).Build(Input{
		Order:         testOrder(domain.TaxStatusGross),
		OrderCustomer: testCustomer,
		WebhookURL:    "https://shop.example/trxps/webhook",
	})
	require.NoError(t, err)
	assert.Empty(t, p.WebhookURL)
}

func TestBuild_CustomerFallback(t *testing.T) {
	fallback := &domain.Customer{Email: "guest@example.com"}

	p, err := NewBuilder(false).Build(Input{Order: testOrder(domain.TaxStatusGross), FallbackCustomer: fallback})
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", p.Customer.Email)
	assert.Nil(t, p.BillingAddress)

	_, err = NewBuilder(false).Build(Input{Order: testOrder(domain.TaxStatusGross)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBuild_CurrencyFallback(t *testing.T) {
	o := testOrder(domain.TaxStatusGross)
	o.Currency = ""

	p, err := NewBuilder(false).Build(Input{Order: o, OrderCustomer: testCustomer, ChannelCurrency: "chf"})
	require.NoError(t, err)
	assert.Equal(t, "CHF", p.Currency)

	p, err = NewBuilder(false).Build(Input{Order: o, OrderCustomer: testCustomer})
	require.NoError(t, err)
	assert.Equal(t, "EUR", p.Currency)
}

func TestBuild_MethodValue(t *testing.T) {
	p, err := NewBuilder(false).Build(Input{Order: testOrder(domain.TaxStatusGross), OrderCustomer: testCustomer, Method: domain.MethodPayPal})
	require.NoError(t, err)
	assert.Equal(t, "paypal", p.PaymentMethod)

	p, err = NewBuilder(false).Build(Input{Order: testOrder(domain.TaxStatusGross), OrderCustomer: testCustomer, Method: domain.MethodTrxps})
	require.NoError(t, err)
	assert.Empty(t, p.PaymentMethod)
}

func TestBuild_RejectsNegativeAmount(t *testing.T) {
	o := testOrder(domain.TaxStatusGross)
	o.AmountTotal = decimal.RequireFromString("-1.00")

	_, err := NewBuilder(false).Build(Input{Order: o, OrderCustomer: testCustomer})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"50.00", "EUR", 5000},
		{"19.995", "EUR", 2000},
		{"0.005", "eur", 1},
		{"0.004", "EUR", 0},
		{"1500", "JPY", 1500},
		{"1500.5", "JPY", 1501},
		{"1.2345", "KWD", 1235},
		{"0", "USD", 0},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

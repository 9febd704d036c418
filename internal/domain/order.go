package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tax status values of an order.
const (
	TaxStatusGross   = "gross"
	TaxStatusNet     = "net"
	TaxStatusTaxFree = "tax-free"
)

// Order state values.
const (
	OrderStateOpen       = "open"
	OrderStateInProgress = "in_progress"
	OrderStateCompleted  = "completed"
	OrderStateCanceled   = "canceled"
)

// Order is a placed purchase. The gateway integration only reads it, apart
// from its own key in CustomFields and the retry route reopening it.
type Order struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"order_number"`
	SalesChannelID string          `json:"sales_channel_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	AmountNet      decimal.Decimal `json:"amount_net"`
	TaxStatus      string          `json:"tax_status"`
	State          string          `json:"state"`
	CustomFields   map[string]any  `json:"custom_fields,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTaxFree reports whether the order is VAT exempt.
func (o *Order) IsTaxFree() bool {
	return o.TaxStatus == TaxStatusTaxFree
}

// Address is a customer billing address.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state,omitempty"`
}

// Customer is the buyer of an order.
type Customer struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Company        string   `json:"company,omitempty"`
	BillingAddress *Address `json:"billing_address,omitempty"`
}

// SalesChannel is a storefront. Its defaults fill gaps in an order.
type SalesChannel struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DefaultCurrency   string `json:"default_currency,omitempty"`
	DefaultLocale     string `json:"default_locale,omitempty"`
	DefaultCustomerID string `json:"default_customer_id,omitempty"`
}

package domain

import (
	"encoding/json"
	"strings"
)

// SessionNamespace is the order custom field key holding the checkout
// session record. External consumers read it directly; do not rename.
const SessionNamespace = "trxps_payments"

// CheckoutSession links an order to the remote checkout created for it.
type CheckoutSession struct {
	RemoteID   string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

// Outcome is the tri-state payment result reported by the gateway.
type Outcome string

// Outcomes.
const (
	OutcomeOpen     Outcome = "open"
	OutcomePaid     Outcome = "paid"
	OutcomeCanceled Outcome = "canceled"
)

// RemoteCheckout is a checkout as returned by the gateway.
type RemoteCheckout struct {
	ID         string `json:"id"`
	Reference  string `json:"reference"`
	Paid       bool   `json:"paid"`
	Canceled   bool   `json:"canceled"`
	Status     string `json:"status,omitempty"`
	PaymentURL string `json:"payment_url"`
}

// UnmarshalJSON accepts both spellings of the cancellation flag and status
// and stores only the canonical one.
func (c *RemoteCheckout) UnmarshalJSON(data []byte) error {
	type wire RemoteCheckout
	var raw struct {
		wire
		Cancelled *bool `json:"cancelled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = RemoteCheckout(raw.wire)
	if raw.Cancelled != nil && *raw.Cancelled {
		c.Canceled = true
	}
	c.Status = NormalizeStatus(c.Status)
	return nil
}

// NormalizeStatus lowercases s and folds "cancelled" into "canceled".
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "cancelled" {
		return string(OutcomeCanceled)
	}
	return s
}

// Outcome derives the tri-state result. Paid wins over canceled.
func (c *RemoteCheckout) Outcome() Outcome {
	switch {
	case c.Paid || c.Status == string(OutcomePaid):
		return OutcomePaid
	case c.Canceled || c.Status == string(OutcomeCanceled):
		return OutcomeCanceled
	default:
		return OutcomeOpen
	}
}

// CheckoutPayload is the body of a create-checkout request. The shop id is
// added by the gateway client.
type CheckoutPayload struct {
	Currency            string           `json:"currency"`
	Amount              int64            `json:"amount"`
	Reference           string           `json:"reference"`
	SuccessURL          string           `json:"success_url"`
	CancelURL           string           `json:"cancel_url"`
	StatementDescriptor string           `json:"statement_descriptor"`
	Locale              string           `json:"locale,omitempty"`
	WebhookURL          string           `json:"webhook_url,omitempty"`
	PaymentMethod       string           `json:"payment_method,omitempty"`
	Customer            *PayloadCustomer `json:"customer,omitempty"`
	BillingAddress      *PayloadAddress  `json:"billing_address,omitempty"`
}

// PayloadCustomer is the customer block of a checkout payload.
type PayloadCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
}

// PayloadAddress is the billing address block of a checkout payload.
type PayloadAddress struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state,omitempty"`
}

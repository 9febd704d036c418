// Package payload turns orders into Trxps checkout requests.
package payload

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// DefaultCurrency is used when neither the order nor its sales channel
// names a currency.
const DefaultCurrency = "EUR"

// StatementPrefix precedes the order number on the buyer's statement.
const StatementPrefix = "Bestellung "

var currencyExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

// Exponent returns the number of minor-unit digits of currency.
func Exponent(currency string) int32 {
	if e, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return e
	}
	return 2
}

// ToMinorUnits converts amount into the currency's smallest unit, rounding
// half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if amount.IsNegative() {
		return 0, apperrors.InvalidInput(fmt.Sprintf("amount %s must not be negative", amount.String()))
	}
	minor := amount.Shift(Exponent(currency)).Round(0)
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, apperrors.InvalidInput(fmt.Sprintf("amount %s is out of range", amount.String()))
	}
	return minor.IntPart(), nil
}

// Input is everything needed to build one checkout payload.
type Input struct {
	Order            *domain.Order
	OrderCustomer    *domain.Customer
	FallbackCustomer *domain.Customer
	ChannelCurrency  string
	ReturnURL        string
	CancelURL        string
	Locale           string
	WebhookURL       string
	Method           domain.MethodKind
}

// Builder builds checkout payloads.
type Builder struct {
	localDevelopment bool
}

// NewBuilder creates a Builder. In local development the webhook URL is left
// out because the gateway cannot reach the machine.
func NewBuilder(localDevelopment bool) *Builder {
	return &Builder{localDevelopment: localDevelopment}
}

// Build validates in and returns the checkout payload for it.
func (b *Builder) Build(in Input) (*domain.CheckoutPayload, error) {
	if in.Order == nil {
		return nil, apperrors.InvalidInput("order is required")
	}
	if in.Order.OrderNumber == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("order %s has no order number", in.Order.ID))
	}

	customer := in.OrderCustomer
	if customer == nil {
		customer = in.FallbackCustomer
	}
	if customer == nil {
		return nil, apperrors.InvalidInput("customer data could not be found")
	}

	currency := resolveCurrency(in.Order.Currency, in.ChannelCurrency)

	total := in.Order.AmountTotal
	if in.Order.IsTaxFree() {
		total = in.Order.AmountNet
	}
	amount, err := ToMinorUnits(total, currency)
	if err != nil {
		return nil, err
	}

	p := &domain.CheckoutPayload{
		Currency:            currency,
		Amount:              amount,
		Reference:           in.Order.OrderNumber,
		SuccessURL:          in.ReturnURL,
		CancelURL:           in.CancelURL,
		StatementDescriptor: StatementPrefix + in.Order.OrderNumber,
		Locale:              in.Locale,
		Customer: &domain.PayloadCustomer{
			Email:     customer.Email,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Company:   customer.Company,
		},
	}
	if d, ok := in.Method.Describe(); ok {
		p.PaymentMethod = d.GatewayValue
	}
	if !b.localDevelopment {
		p.WebhookURL = in.WebhookURL
	}
	if a := customer.BillingAddress; a != nil {
		p.BillingAddress = &domain.PayloadAddress{
			Line1:      a.Line1,
			City:       a.City,
			Country:    strings.ToUpper(a.Country),
			PostalCode: a.PostalCode,
			State:      a.State,
		}
	}
	return p, nil
}

func resolveCurrency(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return strings.ToUpper(c)
		}
	}
	return DefaultCurrency
}

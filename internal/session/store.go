// Package session persists the link between an order and its remote
// checkout in the order's custom fields.
package session

import (
	"context"
	"fmt"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

const legacyPaymentURLKey = "transactionReturnUrl"

// FieldWriter merges one key into an order's custom fields, leaving the other
// keys untouched. It returns an error wrapping ErrNotFound for unknown orders.
type FieldWriter interface {
	MergeCustomField(ctx context.Context, orderID, key string, value any) error
}

// Store saves checkout session records.
type Store struct {
	writer FieldWriter
}

// NewStore creates a Store writing through w.
func NewStore(w FieldWriter) *Store {
	return &Store{writer: w}
}

// Save replaces the session record of the order.
func (s *Store) Save(ctx context.Context, orderID, remoteID, paymentURL string) error {
	if remoteID == "" {
		return apperrors.InvalidInput("remote checkout id is required")
	}
	rec := domain.CheckoutSession{RemoteID: remoteID, PaymentURL: paymentURL}
	if err := s.writer.MergeCustomField(ctx, orderID, domain.SessionNamespace, rec); err != nil {
		return fmt.Errorf("save checkout session for order %s: %w", orderID, err)
	}
	return nil
}

// Load reads the session record from an order. Missing, malformed or
// partial records (no remote id) are reported as absent.
func Load(order *domain.Order) (domain.CheckoutSession, bool) {
	if order == nil || order.CustomFields == nil {
		return domain.CheckoutSession{}, false
	}

	switch v := order.CustomFields[domain.SessionNamespace].(type) {
	case domain.CheckoutSession:
		return v, v.RemoteID != ""
	case *domain.CheckoutSession:
		if v == nil {
			return domain.CheckoutSession{}, false
		}
		return *v, v.RemoteID != ""
	case map[string]any:
		return fromMap(func(k string) (string, bool) {
			s, ok := v[k].(string)
			return s, ok
		})
	case map[string]string:
		return fromMap(func(k string) (string, bool) {
			s, ok := v[k]
			return s, ok
		})
	default:
		return domain.CheckoutSession{}, false
	}
}

func fromMap(get func(string) (string, bool)) (domain.CheckoutSession, bool) {
	id, ok := get("order_id")
	if !ok || id == "" {
		return domain.CheckoutSession{}, false
	}
	rec := domain.CheckoutSession{RemoteID: id}
	if u, ok := get("payment_url"); ok && u != "" {
		rec.PaymentURL = u
	} else if u, ok := get(legacyPaymentURLKey); ok {
		rec.PaymentURL = u
	}
	return rec, true
}

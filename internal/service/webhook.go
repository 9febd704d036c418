package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/programmierbude/trxps-gateway/internal/session"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// WebhookInput is the body Trxps posts on checkout changes.
type WebhookInput struct {
	Object struct {
		CheckoutID string `json:"checkout_id" validate:"required"`
	} `json:"object"`
}

// HandleWebhook reconciles the order behind a checkout notification.
// The checkout in the notification is only used to find the order; the
// status is read from the checkout stored on the order. Repeated deliveries
// are no-ops.
func (s *PaymentService) HandleWebhook(ctx context.Context, salesChannelID, checkoutID string) (*FinalizeResult, error) {
	if checkoutID == "" {
		return nil, apperrors.InvalidInput("checkout_id is required")
	}
	if salesChannelID == "" {
		salesChannelID = s.opts.DefaultSalesChannelID
	}

	creds, st, err := s.credentials(ctx, salesChannelID)
	if err != nil {
		return nil, err
	}
	if st.DebugMode {
		s.logger.InfoContext(ctx, "webhook triggered",
			slog.String("checkout_id", checkoutID),
		)
	}

	notified, err := s.gateway.FetchCheckout(ctx, creds, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("fetch notified checkout %s: %w", checkoutID, err)
	}
	if notified.Reference == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("checkout %s carries no order reference", checkoutID))
	}

	order, err := s.store.Orders().GetByOrderNumber(ctx, notified.Reference)
	if err != nil {
		return nil, fmt.Errorf("no order found for reference %s: %w", notified.Reference, err)
	}
	rec, ok := session.Load(order)
	if !ok {
		return nil, apperrors.NotFound("checkout session for order", order.OrderNumber)
	}
	tx, err := s.store.Transactions().GetLatestByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("get transaction of order %s: %w", order.OrderNumber, err)
	}

	res, _, err := s.fetchAndReconcile(ctx, "webhook", order, tx, rec)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "webhook processed",
		slog.String("order_number", order.OrderNumber),
		slog.String("transaction_id", tx.ID),
		slog.String("status", string(res.Status)),
		slog.Bool("changed", res.Changed),
	)
	return &FinalizeResult{Status: res.Status, Changed: res.Changed}, nil
}


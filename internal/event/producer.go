package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	pkgkafka "github.com/programmierbude/trxps-gateway/pkg/kafka"
	"github.com/programmierbude/trxps-gateway/pkg/logger"
)

// TopicPaymentEvents carries every event of this service.
const TopicPaymentEvents = "payment.events"

// Event types.
const (
	TypeCheckoutCreated    = "trxps.checkout.created"
	TypeCheckoutSuperseded = "trxps.checkout.superseded"
	TypePaymentPaid        = "trxps.payment.paid"
	TypePaymentCanceled    = "trxps.payment.canceled"
)

// AggregateTypeOrder is the aggregate all events are keyed by.
const AggregateTypeOrder = "order"

// SourceTrxpsGateway identifies events originating from this service.
const SourceTrxpsGateway = "trxps-gateway"

// CheckoutData is the payload of checkout events.
type CheckoutData struct {
	OrderID            string `json:"order_id"`
	OrderNumber        string `json:"order_number"`
	TransactionID      string `json:"transaction_id"`
	CheckoutID         string `json:"checkout_id"`
	PreviousCheckoutID string `json:"previous_checkout_id,omitempty"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	SalesChannelID     string `json:"sales_channel_id"`
}

// PaymentData is the payload of payment outcome events.
type PaymentData struct {
	OrderID       string                  `json:"order_id"`
	OrderNumber   string                  `json:"order_number"`
	TransactionID string                  `json:"transaction_id"`
	CheckoutID    string                  `json:"checkout_id"`
	From          domain.TransactionState `json:"from"`
	To            domain.TransactionState `json:"to"`
	Trigger       string                  `json:"trigger"`
}

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes Trxps payment events to Kafka.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishCheckoutCreated publishes a trxps.checkout.created event.
func (p *Producer) PublishCheckoutCreated(ctx context.Context, data CheckoutData) error {
	return p.publish(ctx, TypeCheckoutCreated, data.OrderID, data)
}

// PublishCheckoutSuperseded publishes a trxps.checkout.superseded event
// for a session record that replaced an earlier one.
func (p *Producer) PublishCheckoutSuperseded(ctx context.Context, data CheckoutData) error {
	return p.publish(ctx, TypeCheckoutSuperseded, data.OrderID, data)
}

// PublishPaymentPaid publishes a trxps.payment.paid event.
func (p *Producer) PublishPaymentPaid(ctx context.Context, data PaymentData) error {
	return p.publish(ctx, TypePaymentPaid, data.OrderID, data)
}

// PublishPaymentCanceled publishes a trxps.payment.canceled event.
func (p *Producer) PublishPaymentCanceled(ctx context.Context, data PaymentData) error {
	return p.publish(ctx, TypePaymentCanceled, data.OrderID, data)
}

func (p *Producer) publish(ctx context.Context, eventType, orderID string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, orderID, AggregateTypeOrder, SourceTrxpsGateway, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if sc := logger.SalesChannelIDFromContext(ctx); sc != "" {
		evt.WithMetadata("sales_channel_id", sc)
	}

	if err := p.publisher.Publish(ctx, TopicPaymentEvents, evt); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	p.logger.InfoContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("order_id", orderID),
		slog.String("event_id", evt.EventID),
	)
	return nil
}

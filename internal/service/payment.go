package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/internal/event"
	"github.com/programmierbude/trxps-gateway/internal/gateway"
	"github.com/programmierbude/trxps-gateway/internal/payload"
	"github.com/programmierbude/trxps-gateway/internal/reconcile"
	"github.com/programmierbude/trxps-gateway/internal/repository"
	"github.com/programmierbude/trxps-gateway/internal/session"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
	"github.com/programmierbude/trxps-gateway/pkg/validator"
)

// CheckoutGateway is the part of the Trxps API the service uses.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, creds gateway.Credentials, p *domain.CheckoutPayload) (*domain.RemoteCheckout, error)
	FetchCheckout(ctx context.Context, creds gateway.Credentials, remoteID string) (*domain.RemoteCheckout, error)
}

// SettingsStore holds the per-sales-channel gateway settings.
type SettingsStore interface {
	Get(ctx context.Context, salesChannelID string) (domain.Settings, error)
	Put(ctx context.Context, salesChannelID string, s domain.Settings) error
}

// EventPublisher publishes payment lifecycle events. *event.Producer
// implements it.
type EventPublisher interface {
	PublishCheckoutCreated(ctx context.Context, data event.CheckoutData) error
	PublishCheckoutSuperseded(ctx context.Context, data event.CheckoutData) error
	PublishPaymentPaid(ctx context.Context, data event.PaymentData) error
	PublishPaymentCanceled(ctx context.Context, data event.PaymentData) error
}

// Options are the deployment-specific URLs and defaults.
type Options struct {
	// BaseURL is the public URL of this service. Cancel and webhook URLs
	// sent to Trxps are built from it.
	BaseURL string
	// FinishURL is where paid customers go when the request names no
	// return URL.
	FinishURL string
	// DefaultSalesChannelID is used for webhooks that carry no sales channel.
	DefaultSalesChannelID string
}

// PaymentService implements the Trxps payment flows.
type PaymentService struct {
	store      repository.Store
	gateway    CheckoutGateway
	settings   SettingsStore
	builder    *payload.Builder
	reconciler *reconcile.Reconciler
	events     EventPublisher
	opts       Options
	logger     *slog.Logger
}

// NewPaymentService creates a new payment service. events may be nil.
func NewPaymentService(
	store repository.Store,
	gw CheckoutGateway,
	settings SettingsStore,
	builder *payload.Builder,
	events EventPublisher,
	opts Options,
	logger *slog.Logger,
) *PaymentService {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &PaymentService{
		store:      store,
		gateway:    gw,
		settings:   settings,
		builder:    builder,
		reconciler: reconcile.New(store.Transactions(), logger),
		events:     events,
		opts:       opts,
		logger:     logger,
	}
}

// PayInput holds the parameters for starting a payment.
type PayInput struct {
	ReturnURL string `json:"return_url" validate:"required,http_url"`
	Locale    string `json:"locale" validate:"omitempty,oneof=en-GB de-DE"`
}

// PayResult tells the storefront where to send the customer.
type PayResult struct {
	RedirectURL string `json:"redirect_url"`
	CheckoutID  string `json:"checkout_id"`
}

// Pay creates a remote checkout for the transaction and records it on the
// order. Nothing is persisted unless the gateway returned a checkout.
func (s *PaymentService) Pay(ctx context.Context, transactionID string, input *PayInput) (*PayResult, error) {
	if err := validator.Validate(input); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	tx, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get transaction for payment: %w", err)
	}
	if tx.State == domain.TransactionStatePaid {
		return nil, apperrors.Conflict(fmt.Sprintf("transaction %s is already paid", tx.ID))
	}
	if !tx.PaymentMethod.IsGatewayMethod() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("payment method %q is not handled by trxps", tx.PaymentMethod))
	}

	order, err := s.store.Orders().GetByID(ctx, tx.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment: %w", err)
	}
	previous, hadPrevious := session.Load(order)

	checkout, p, err := s.createCheckout(ctx, tx, order, input.ReturnURL, input.Locale)
	if err != nil {
		s.logger.ErrorContext(ctx, "create checkout failed",
			slog.String("operation", "pay"),
			slog.String("transaction_id", tx.ID),
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	err = s.store.WithTx(ctx, func(st repository.Store) error {
		if err := session.NewStore(st.Orders()).Save(ctx, order.ID, checkout.ID, checkout.PaymentURL); err != nil {
			return err
		}
		if tx.State == domain.TransactionStateCanceled {
			if _, err := st.Transactions().Transition(ctx, tx.ID, domain.ActionReopen); err != nil {
				return fmt.Errorf("reopen transaction: %w", err)
			}
		}
		if _, err := st.Transactions().Transition(ctx, tx.ID, domain.ActionProcess); err != nil {
			return fmt.Errorf("mark transaction in progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record checkout %s: %w", checkout.ID, err)
	}

	s.logger.InfoContext(ctx, "checkout created",
		slog.String("transaction_id", tx.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("checkout_id", checkout.ID),
	)
	s.publishCheckout(ctx, order, tx, checkout, p, previous, hadPrevious)

	return &PayResult{RedirectURL: checkout.PaymentURL, CheckoutID: checkout.ID}, nil
}

// FinalizeResult is the reconciled state after the customer came back.
type FinalizeResult struct {
	Status  reconcile.Status `json:"status"`
	Changed bool             `json:"changed"`
}

// Finalize reconciles the transaction with the gateway after the customer
// returned. A canceled payment is reported as ErrCustomerCanceled.
func (s *PaymentService) Finalize(ctx context.Context, transactionID string) (*FinalizeResult, error) {
	tx, order, rec, err := s.loadWithSession(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	res, checkout, err := s.fetchAndReconcile(ctx, "finalize", order, tx, rec)
	if err != nil {
		return nil, err
	}

	if res.Status == reconcile.StatusCanceled {
		s.logger.InfoContext(ctx, "customer canceled payment",
			slog.String("transaction_id", tx.ID),
			slog.String("order_number", order.OrderNumber),
			slog.String("checkout_id", checkout.ID),
		)
		return nil, apperrors.CustomerCanceled(tx.ID)
	}

	return &FinalizeResult{Status: res.Status, Changed: res.Changed}, nil
}

// ReturnAction is what the browser payment route does next.
type ReturnAction string

// Return actions.
const (
	ReturnToShop    ReturnAction = "finish"
	ReturnToPayment ReturnAction = "payment"
	ReturnFailed    ReturnAction = "failed"
)

// ReturnResult describes the redirect for a customer coming back from Trxps.
type ReturnResult struct {
	Action ReturnAction
	// URL is the shop finish URL, the payment page, or for ReturnFailed the
	// payment page of the fresh checkout.
	URL string
}

// HandleReturn reconciles a browser return. A canceled payment gets a fresh
// checkout which supersedes the old session record.
func (s *PaymentService) HandleReturn(ctx context.Context, transactionID, returnURL string) (*ReturnResult, error) {
	tx, order, rec, err := s.loadWithSession(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	finishURL := returnURL
	if finishURL == "" {
		finishURL = s.opts.FinishURL
	}

	res, checkout, err := s.fetchAndReconcile(ctx, "payment_return", order, tx, rec)
	if err != nil {
		if errors.Is(err, apperrors.ErrReconciliationConflict) {
			// Already terminal; the shop shows the order status.
			return &ReturnResult{Action: ReturnToShop, URL: finishURL}, nil
		}
		return nil, err
	}

	switch res.Status {
	case reconcile.StatusPaid:
		return &ReturnResult{Action: ReturnToShop, URL: finishURL}, nil
	case reconcile.StatusOpen:
		paymentURL := rec.PaymentURL
		if paymentURL == "" {
			paymentURL = checkout.PaymentURL
		}
		return &ReturnResult{Action: ReturnToPayment, URL: paymentURL}, nil
	}

	fresh, p, err := s.createCheckout(ctx, tx, order, finishURL, "")
	if err != nil {
		return nil, fmt.Errorf("create replacement checkout: %w", err)
	}
	if err := session.NewStore(s.store.Orders()).Save(ctx, order.ID, fresh.ID, fresh.PaymentURL); err != nil {
		return nil, fmt.Errorf("save replacement checkout: %w", err)
	}
	s.publishCheckout(ctx, order, tx, fresh, p, rec, true)

	return &ReturnResult{Action: ReturnFailed, URL: fresh.PaymentURL}, nil
}

// Retry reopens the order and transaction and returns the URL the customer
// should continue at. The URL arrives query-escaped.
func (s *PaymentService) Retry(ctx context.Context, transactionID, escapedURL string) (string, error) {
	redirectURL, err := url.QueryUnescape(escapedURL)
	if err != nil {
		return "", apperrors.InvalidInput("the redirect URL is invalid")
	}
	if err := validator.Var(redirectURL, "required,http_url"); err != nil {
		return "", apperrors.InvalidInput("the redirect URL is invalid")
	}

	tx, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return "", fmt.Errorf("get transaction for retry: %w", err)
	}
	order, err := s.store.Orders().GetByID(ctx, tx.OrderID)
	if err != nil {
		return "", fmt.Errorf("get order for retry: %w", err)
	}

	if err := s.store.Orders().UpdateState(ctx, order.ID, domain.OrderStateOpen); err != nil {
		return "", fmt.Errorf("reopen order: %w", err)
	}

	for _, action := range []domain.TransactionAction{domain.ActionReopen, domain.ActionProcess} {
		if _, err := s.store.Transactions().Transition(ctx, tx.ID, action); err != nil {
			s.logger.WarnContext(ctx, "retry transition failed",
				slog.String("operation", "retry"),
				slog.String("transaction_id", tx.ID),
				slog.String("action", string(action)),
				slog.String("error", err.Error()),
			)
		}
	}

	return redirectURL, nil
}

func (s *PaymentService) loadWithSession(ctx context.Context, transactionID string) (*domain.Transaction, *domain.Order, domain.CheckoutSession, error) {
	tx, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, nil, domain.CheckoutSession{}, fmt.Errorf("get transaction: %w", err)
	}
	order, err := s.store.Orders().GetByID(ctx, tx.OrderID)
	if err != nil {
		return nil, nil, domain.CheckoutSession{}, fmt.Errorf("get order: %w", err)
	}
	rec, ok := session.Load(order)
	if !ok {
		return nil, nil, domain.CheckoutSession{}, apperrors.NotFound("checkout session for order", order.ID)
	}
	return tx, order, rec, nil
}

func (s *PaymentService) fetchAndReconcile(
	ctx context.Context,
	trigger string,
	order *domain.Order,
	tx *domain.Transaction,
	rec domain.CheckoutSession,
) (reconcile.Result, *domain.RemoteCheckout, error) {
	creds, _, err := s.credentials(ctx, order.SalesChannelID)
	if err != nil {
		return reconcile.Result{}, nil, err
	}

	checkout, err := s.gateway.FetchCheckout(ctx, creds, rec.RemoteID)
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch checkout failed",
			slog.String("operation", trigger),
			slog.String("transaction_id", tx.ID),
			slog.String("checkout_id", rec.RemoteID),
			slog.String("error", err.Error()),
		)
		return reconcile.Result{}, nil, err
	}

	res, err := s.reconciler.Reconcile(ctx, tx.ID, checkout)
	if err != nil {
		return res, checkout, err
	}
	s.publishOutcome(ctx, trigger, order, tx, checkout, res)
	return res, checkout, nil
}

func (s *PaymentService) credentials(ctx context.Context, salesChannelID string) (gateway.Credentials, domain.Settings, error) {
	st, err := s.settings.Get(ctx, salesChannelID)
	if err != nil {
		return gateway.Credentials{}, domain.Settings{}, fmt.Errorf("load trxps settings: %w", err)
	}
	creds := gateway.Credentials{
		APIKey:   st.ActiveAPIKey(),
		ShopID:   st.ActiveShopID(),
		TestMode: st.TestMode,
	}
	if st.DebugMode {
		s.logger.InfoContext(ctx, "selected trxps credentials",
			slog.String("sales_channel_id", salesChannelID),
			slog.Bool("test_mode", st.TestMode),
			slog.String("shop_id", creds.ShopID),
			slog.String("api_key", st.Redacted().ActiveAPIKey()),
		)
	}
	return creds, st, nil
}

func (s *PaymentService) createCheckout(
	ctx context.Context,
	tx *domain.Transaction,
	order *domain.Order,
	returnURL, locale string,
) (*domain.RemoteCheckout, *domain.CheckoutPayload, error) {
	creds, st, err := s.credentials(ctx, order.SalesChannelID)
	if err != nil {
		return nil, nil, err
	}

	in := payload.Input{
		Order:      order,
		ReturnURL:  returnURL,
		CancelURL:  s.opts.BaseURL + "/trxps/payment/" + url.PathEscape(tx.ID) + "?returnUrl=" + url.QueryEscape(returnURL),
		Locale:     locale,
		WebhookURL: s.opts.BaseURL + "/trxps/webhook?salesChannelId=" + url.QueryEscape(order.SalesChannelID),
		Method:     tx.PaymentMethod,
	}

	channel, err := s.store.SalesChannels().GetByID(ctx, order.SalesChannelID)
	switch {
	case err == nil:
		in.ChannelCurrency = channel.DefaultCurrency
		if in.Locale == "" {
			in.Locale = channel.DefaultLocale
		}
		if channel.DefaultCustomerID != "" {
			if in.FallbackCustomer, err = s.optionalCustomer(ctx, channel.DefaultCustomerID); err != nil {
				return nil, nil, err
			}
		}
	case errors.Is(err, apperrors.ErrNotFound):
		s.logger.WarnContext(ctx, "sales channel not found, using defaults",
			slog.String("sales_channel_id", order.SalesChannelID),
		)
	default:
		return nil, nil, fmt.Errorf("get sales channel: %w", err)
	}

	if order.CustomerID != "" {
		if in.OrderCustomer, err = s.optionalCustomer(ctx, order.CustomerID); err != nil {
			return nil, nil, err
		}
	}

	p, err := s.builder.Build(in)
	if err != nil {
		return nil, nil, fmt.Errorf("build checkout payload: %w", err)
	}
	if st.DebugMode {
		s.logger.InfoContext(ctx, "order prepared for trxps",
			slog.String("order_number", order.OrderNumber),
			slog.Any("payload", p),
		)
	}

	checkout, err := s.gateway.CreateCheckout(ctx, creds, p)
	if err != nil {
		return nil, nil, err
	}
	if checkout.PaymentURL == "" {
		return nil, nil, apperrors.RemoteProtocol("create_checkout", fmt.Errorf("checkout %s has no payment url", checkout.ID))
	}
	return checkout, p, nil
}

func (s *PaymentService) optionalCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := s.store.Customers().GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *PaymentService) publishCheckout(
	ctx context.Context,
	order *domain.Order,
	tx *domain.Transaction,
	checkout *domain.RemoteCheckout,
	p *domain.CheckoutPayload,
	previous domain.CheckoutSession,
	hadPrevious bool,
) {
	if s.events == nil {
		return
	}
	data := event.CheckoutData{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		TransactionID:  tx.ID,
		CheckoutID:     checkout.ID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		SalesChannelID: order.SalesChannelID,
	}

	var err error
	if hadPrevious && previous.RemoteID != checkout.ID {
		data.PreviousCheckoutID = previous.RemoteID
		err = s.events.PublishCheckoutSuperseded(ctx, data)
	} else {
		err = s.events.PublishCheckoutCreated(ctx, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish checkout event",
			slog.String("checkout_id", checkout.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PaymentService) publishOutcome(
	ctx context.Context,
	trigger string,
	order *domain.Order,
	tx *domain.Transaction,
	checkout *domain.RemoteCheckout,
	res reconcile.Result,
) {
	if s.events == nil || !res.Changed {
		return
	}
	data := event.PaymentData{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TransactionID: tx.ID,
		CheckoutID:    checkout.ID,
		From:          res.From,
		To:            res.To,
		Trigger:       trigger,
	}

	var err error
	switch res.Status {
	case reconcile.StatusPaid:
		err = s.events.PublishPaymentPaid(ctx, data)
	case reconcile.StatusCanceled:
		err = s.events.PublishPaymentCanceled(ctx, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish payment event",
			slog.String("transaction_id", tx.ID),
			slog.String("error", err.Error()),
		)
	}
}

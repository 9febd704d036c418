package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/internal/gateway"
	"github.com/programmierbude/trxps-gateway/internal/session"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// probeCheckoutID is fetched to test API keys. It never exists, so a valid
// key gets a 404 and an invalid one a 401 or 403.
const probeCheckoutID = "trxps-key-probe"

// TestAPIKeysInput holds the keys to test.
type TestAPIKeysInput struct {
	LiveAPIKey string `json:"live_api_key"`
	TestAPIKey string `json:"test_api_key"`
	LiveShopID string `json:"live_shop_id"`
	TestShopID string `json:"test_shop_id"`
}

// KeyTestResult is the outcome for one key.
type KeyTestResult struct {
	Key   string `json:"key"`
	Mode  string `json:"mode"`
	Valid bool   `json:"valid"`
}

// TestAPIKeys checks the live and test keys against the gateway.
func (s *PaymentService) TestAPIKeys(ctx context.Context, input *TestAPIKeysInput) []KeyTestResult {
	probes := []struct {
		mode  string
		creds gateway.Credentials
	}{
		{"live", gateway.Credentials{APIKey: input.LiveAPIKey, ShopID: input.LiveShopID}},
		{"test", gateway.Credentials{APIKey: input.TestAPIKey, ShopID: input.TestShopID, TestMode: true}},
	}

	results := make([]KeyTestResult, 0, len(probes))
	for _, p := range probes {
		_, err := s.gateway.FetchCheckout(ctx, p.creds, probeCheckoutID)
		valid := keyAccepted(err)
		s.logger.InfoContext(ctx, "tested trxps api key",
			slog.String("mode", p.mode),
			slog.Bool("valid", valid),
		)
		results = append(results, KeyTestResult{Key: p.creds.APIKey, Mode: p.mode, Valid: valid})
	}
	return results
}

func keyAccepted(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, apperrors.ErrConfiguration) {
		return false
	}
	if pe, ok := gateway.AsProtocolError(err); ok {
		return pe.StatusCode != http.StatusUnauthorized && pe.StatusCode != http.StatusForbidden
	}
	return true
}

// GetSettings returns the settings of a sales channel with the API keys
// masked.
func (s *PaymentService) GetSettings(ctx context.Context, salesChannelID string) (domain.Settings, error) {
	st, err := s.settings.Get(ctx, salesChannelID)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return st.Redacted(), nil
}

// SettingsInput holds new settings for a sales channel.
type SettingsInput struct {
	LiveAPIKey string `json:"live_api_key"`
	TestAPIKey string `json:"test_api_key"`
	LiveShopID string `json:"live_shop_id"`
	TestShopID string `json:"test_shop_id"`
	TestMode   *bool  `json:"test_mode" validate:"required"`
	DebugMode  bool   `json:"debug_mode"`
}

// UpdateSettings stores the settings of a sales channel. Masked keys, as
// returned by GetSettings, keep the stored value.
func (s *PaymentService) UpdateSettings(ctx context.Context, salesChannelID string, input *SettingsInput) (domain.Settings, error) {
	current, err := s.settings.Get(ctx, salesChannelID)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	next := domain.Settings{
		LiveAPIKey: keepMasked(input.LiveAPIKey, current.LiveAPIKey),
		TestAPIKey: keepMasked(input.TestAPIKey, current.TestAPIKey),
		LiveShopID: strings.TrimSpace(input.LiveShopID),
		TestShopID: strings.TrimSpace(input.TestShopID),
		TestMode:   input.TestMode != nil && *input.TestMode,
		DebugMode:  input.DebugMode,
	}
	if err := s.settings.Put(ctx, salesChannelID, next); err != nil {
		return domain.Settings{}, fmt.Errorf("update settings: %w", err)
	}

	s.logger.InfoContext(ctx, "trxps settings updated",
		slog.String("sales_channel_id", salesChannelID),
		slog.Bool("test_mode", next.TestMode),
		slog.Bool("debug_mode", next.DebugMode),
	)
	return next.Redacted(), nil
}

func keepMasked(in, current string) string {
	in = strings.TrimSpace(in)
	if strings.HasPrefix(in, "****") {
		return current
	}
	return in
}

// GetSession returns the checkout session stored on an order.
func (s *PaymentService) GetSession(ctx context.Context, orderID string) (domain.CheckoutSession, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("get order: %w", err)
	}
	rec, ok := session.Load(order)
	if !ok {
		return domain.CheckoutSession{}, apperrors.NotFound("checkout session for order", orderID)
	}
	return rec, nil
}

// PaymentMethods lists the payment methods routed through Trxps.
func (s *PaymentService) PaymentMethods() []domain.MethodDescriptor {
	return domain.Methods()
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/programmierbude/trxps-gateway/internal/service"
	"github.com/programmierbude/trxps-gateway/pkg/health"
	"github.com/programmierbude/trxps-gateway/pkg/httputil"
	"github.com/programmierbude/trxps-gateway/pkg/middleware"
)

const serviceName = "trxps-gateway"

// RouterConfig holds the settings of the HTTP surface.
type RouterConfig struct {
	JWTSecret        string
	WebhookRateLimit float64
	WebhookBurst     int
}

// NewRouter creates a chi router with all gateway routes registered. ctx
// bounds the background work of the rate limiter.
func NewRouter(
	ctx context.Context,
	paymentService *service.PaymentService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	paymentHandler := NewPaymentHandler(paymentService, logger)
	storefrontHandler := NewStorefrontHandler(paymentService, logger)
	webhookHandler := NewWebhookHandler(paymentService, logger)
	adminHandler := NewAdminHandler(paymentService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/payment-methods", paymentHandler.ListPaymentMethods)
		r.Post("/transactions/{transactionID}/pay", paymentHandler.Pay)
		r.Post("/transactions/{transactionID}/finalize", paymentHandler.Finalize)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(middleware.HMACValidator(cfg.JWTSecret)))
			r.Use(middleware.RequireRole("admin"))

			r.Post("/config/test-api-keys", adminHandler.TestAPIKeys)
			r.Get("/sales-channels/{salesChannelID}/settings", adminHandler.GetSettings)
			r.Put("/sales-channels/{salesChannelID}/settings", adminHandler.UpdateSettings)
			r.Get("/orders/{orderID}/trxps", adminHandler.GetSession)
		})
	})

	r.Route("/trxps", func(r chi.Router) {
		r.Get("/payment/failed/{transactionID}", storefrontHandler.PaymentFailed)
		r.Get("/payment/retry/{transactionID}/{redirectURL}", storefrontHandler.Retry)
		r.Get("/payment/{transactionID}", storefrontHandler.PaymentReturn)
		r.Post("/payment/{transactionID}", storefrontHandler.PaymentReturn)

		r.With(middleware.RateLimit(ctx, cfg.WebhookRateLimit, cfg.WebhookBurst, logger)).
			Post("/webhook", webhookHandler.Handle)
	})

	return r
}

// ContentTypeJSON rejects request bodies that are not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

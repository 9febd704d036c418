package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/programmierbude/trxps-gateway/internal/service"
	"github.com/programmierbude/trxps-gateway/pkg/httputil"
	"github.com/programmierbude/trxps-gateway/pkg/logger"
	"github.com/programmierbude/trxps-gateway/pkg/validator"
)

// WebhookHandler receives checkout notifications from Trxps.
type WebhookHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(svc *service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		logger:  logger,
	}
}

// WebhookResponse is the body returned to Trxps.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Handle handles POST /trxps/webhook
//
// Every failure is answered with 422 so Trxps redelivers the notification.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	salesChannelID := r.URL.Query().Get("salesChannelId")
	ctx := r.Context()
	if salesChannelID != "" {
		ctx = logger.WithSalesChannelID(ctx, salesChannelID)
	}

	var req service.WebhookInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, "invalid request body: "+err.Error(), err)
		return
	}
	if err := validator.Validate(req); err != nil {
		h.fail(w, r, err.Error(), err)
		return
	}

	if _, err := h.service.HandleWebhook(ctx, salesChannelID, req.Object.CheckoutID); err != nil {
		logFailure(ctx, h.logger, "webhook", err, slog.String("checkout_id", req.Object.CheckoutID))
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, WebhookResponse{Error: err.Error()})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, WebhookResponse{Success: true})
}

func (h *WebhookHandler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.WarnContext(r.Context(), "webhook rejected",
		slog.String("operation", "webhook"),
		slog.String("error", err.Error()),
	)
	httputil.WriteJSON(w, http.StatusUnprocessableEntity, WebhookResponse{Error: message})
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/programmierbude/trxps-gateway/internal/service"
	"github.com/programmierbude/trxps-gateway/pkg/httputil"
	"github.com/programmierbude/trxps-gateway/pkg/middleware"
	"github.com/programmierbude/trxps-gateway/pkg/validator"
)

// AdminHandler handles the operator endpoints. All routes require an admin
// token.
type AdminHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.PaymentService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// TestAPIKeysResponse wraps the key test results.
type TestAPIKeysResponse struct {
	Results []service.KeyTestResult `json:"results"`
}

// TestAPIKeys handles POST /api/v1/admin/config/test-api-keys
func (h *AdminHandler) TestAPIKeys(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.TestAPIKeysInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	results := h.service.TestAPIKeys(r.Context(), &req)
	httputil.WriteJSON(w, http.StatusOK, TestAPIKeysResponse{Results: results})
}

// GetSettings handles GET /api/v1/admin/sales-channels/{salesChannelID}/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context(), chi.URLParam(r, "salesChannelID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: settings})
}

// UpdateSettings handles PUT /api/v1/admin/sales-channels/{salesChannelID}/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.SettingsInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	salesChannelID := chi.URLParam(r, "salesChannelID")
	settings, err := h.service.UpdateSettings(r.Context(), salesChannelID, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "settings changed by operator",
		slog.String("sales_channel_id", salesChannelID),
		slog.String("subject", middleware.SubjectFromContext(r.Context())),
	)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: settings})
}

// GetSession handles GET /api/v1/admin/orders/{orderID}/trxps
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetSession(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

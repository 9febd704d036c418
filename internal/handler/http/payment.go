package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/programmierbude/trxps-gateway/internal/service"
	"github.com/programmierbude/trxps-gateway/pkg/httputil"
	"github.com/programmierbude/trxps-gateway/pkg/validator"
)

// PaymentHandler handles the JSON payment endpoints used by the storefront.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// PayRequest is the JSON request body for starting a payment.
type PayRequest struct {
	ReturnURL string `json:"return_url" validate:"required,http_url"`
	Locale    string `json:"locale" validate:"omitempty,oneof=en-GB de-DE"`
}

// --- Handlers ---

// Pay handles POST /api/v1/transactions/{transactionID}/pay
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	transactionID := chi.URLParam(r, "transactionID")
	result, err := h.service.Pay(r.Context(), transactionID, &service.PayInput{
		ReturnURL: req.ReturnURL,
		Locale:    req.Locale,
	})
	if err != nil {
		logFailure(r.Context(), h.logger, "pay", err, slog.String("transaction_id", transactionID))
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Finalize handles POST /api/v1/transactions/{transactionID}/finalize
func (h *PaymentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	// The body is optional and ignored.
	_, _ = io.Copy(io.Discard, http.MaxBytesReader(w, r.Body, 1<<20))

	transactionID := chi.URLParam(r, "transactionID")
	result, err := h.service.Finalize(r.Context(), transactionID)
	if err != nil {
		logFailure(r.Context(), h.logger, "finalize", err, slog.String("transaction_id", transactionID))
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ListPaymentMethods handles GET /api/v1/payment-methods
func (h *PaymentHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.PaymentMethods()})
}

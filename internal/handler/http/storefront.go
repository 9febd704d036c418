package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/programmierbude/trxps-gateway/internal/service"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
	"github.com/programmierbude/trxps-gateway/pkg/httputil"
)

const defaultLocale = "en-GB"

type failedPageText struct {
	Title   string
	Message string
	Retry   string
}

var failedPageTexts = map[string]failedPageText{
	"en-GB": {
		Title:   "Payment failed",
		Message: "Your payment was canceled or could not be completed. Your order has been saved.",
		Retry:   "Try again",
	},
	"de-DE": {
		Title:   "Zahlung fehlgeschlagen",
		Message: "Ihre Zahlung wurde abgebrochen oder konnte nicht abgeschlossen werden. Ihre Bestellung wurde gespeichert.",
		Retry:   "Erneut versuchen",
	},
}

var failedPage = template.Must(template.New("failed").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Text.Title}}</title>
</head>
<body>
<h1>{{.Text.Title}}</h1>
<p>{{.Text.Message}}</p>
{{if .RetryURL}}<p><a href="{{.RetryURL}}">{{.Text.Retry}}</a></p>{{end}}
</body>
</html>
`))

// StorefrontHandler serves the browser routes customers pass through on
// their way back from Trxps.
type StorefrontHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.PaymentService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service: svc,
		logger:  logger,
	}
}

// PaymentReturn handles GET|POST /trxps/payment/{transactionID}
func (h *StorefrontHandler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")
	returnURL := r.URL.Query().Get("returnUrl")

	result, err := h.service.HandleReturn(r.Context(), transactionID, returnURL)
	if err != nil {
		logFailure(r.Context(), h.logger, "payment_return", err, slog.String("transaction_id", transactionID))
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	switch result.Action {
	case service.ReturnFailed:
		q := url.Values{}
		q.Set("redirectUrl", result.URL)
		if locale := r.URL.Query().Get("locale"); locale != "" {
			q.Set("locale", locale)
		}
		http.Redirect(w, r, "/trxps/payment/failed/"+url.PathEscape(transactionID)+"?"+q.Encode(), http.StatusFound)
	default:
		http.Redirect(w, r, result.URL, http.StatusFound)
	}
}

// PaymentFailed handles GET /trxps/payment/failed/{transactionID}
func (h *StorefrontHandler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	locale := r.URL.Query().Get("locale")
	text, ok := failedPageTexts[locale]
	if !ok {
		locale = defaultLocale
		text = failedPageTexts[defaultLocale]
	}

	var retryURL string
	if redirectURL := r.URL.Query().Get("redirectUrl"); redirectURL != "" {
		retryURL = "/trxps/payment/retry/" + url.PathEscape(transactionID) + "/" + url.QueryEscape(redirectURL)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := failedPage.Execute(w, struct {
		Lang     string
		Text     failedPageText
		RetryURL string
	}{Lang: locale[:2], Text: text, RetryURL: retryURL})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render payment failed page",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()),
		)
	}
}

// Retry handles GET /trxps/payment/retry/{transactionID}/{redirectURL}
func (h *StorefrontHandler) Retry(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	target, err := h.service.Retry(r.Context(), transactionID, chi.URLParam(r, "redirectURL"))
	if err != nil {
		logFailure(r.Context(), h.logger, "retry", err, slog.String("transaction_id", transactionID))
		if errors.Is(err, apperrors.ErrInvalidInput) {
			http.Error(w, "the redirect URL is invalid", http.StatusBadRequest)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

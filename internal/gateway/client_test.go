package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
	"github.com/programmierbude/trxps-gateway/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testCreds = Credentials{APIKey: "test_key", ShopID: "shop-42", TestMode: true}

type captured struct {
	method  string
	path    string
	headers http.Header
	body    map[string]any
}

func newTestServer(t *testing.T, status int, respBody string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.Path
		c.headers = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &c.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(httpclient.New(httpclient.DefaultConfig()), Config{Endpoint: srv.URL + "/", ModuleVersion: "1.2.3"}, testLogger())
}

func samplePayload() *domain.CheckoutPayload {
	return &domain.CheckoutPayload{
		Currency:            "EUR",
		Amount:              5000,
		Reference:           "ORD1001",
		SuccessURL:          "https://shop.example/checkout/finish",
		CancelURL:           "https://shop.example/trxps/payment/tx-1",
		StatementDescriptor: "Bestellung ORD1001",
	}
}

func TestCreateCheckout_Success(t *testing.T) {
	srv, c := newTestServer(t, http.StatusCreated, `{"id":"co_1","reference":"ORD1001","payment_url":"https://pay.trxps.com/co_1"}`)
	client := newTestClient(srv)

	checkout, err := client.CreateCheckout(context.Background(), testCreds, samplePayload())
	require.NoError(t, err)

	assert.Equal(t, "co_1", checkout.ID)
	assert.Equal(t, "https://pay.trxps.com/co_1", checkout.PaymentURL)
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/test/checkouts", c.path)
	assert.Equal(t, "shop-42", c.body["shop_id"])
	assert.Equal(t, float64(5000), c.body["amount"])
	assert.Equal(t, "ORD1001", c.body["reference"])
	assert.NotContains(t, c.body, "webhook_url")

	assert.Equal(t, "test_key", c.headers.Get("Authorization"))
	assert.Equal(t, "application/json", c.headers.Get("Accept"))
	assert.Equal(t, "application/json", c.headers.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(c.headers.Get("User-Agent"), "Trxps/2.30.0 Go/"))
	assert.True(t, strings.HasSuffix(c.headers.Get("User-Agent"), " TrxpsGo/1.2.3"))
	assert.Contains(t, c.headers.Get("X-Trxps-Client-Info"), "/")
}

func TestFetchCheckout_LiveModeCarriesShopID(t *testing.T) {
	srv, c := newTestServer(t, http.StatusOK, `{"id":"co_9","reference":"ORD9","paid":true}`)
	client := newTestClient(srv)

	creds := testCreds
	creds.TestMode = false
	checkout, err := client.FetchCheckout(context.Background(), creds, "co_9")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePaid, checkout.Outcome())
	assert.Equal(t, http.MethodGet, c.method)
	assert.Equal(t, "/live/checkouts/co_9", c.path)
	assert.Equal(t, "shop-42", c.body["shop_id"])
}

func TestCall_MissingCredentialsFailsBeforeNetwork(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()
	client := newTestClient(srv)

	_, err := client.FetchCheckout(context.Background(), Credentials{ShopID: "s"}, "co_1")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = client.CreateCheckout(context.Background(), Credentials{APIKey: "k"}, samplePayload())
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	assert.Zero(t, hits)
}

func TestCall_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ProtocolErrorKind
	}{
		{"server error with empty body", http.StatusInternalServerError, "", KindStatus},
		{"client error", http.StatusUnprocessableEntity, `{"error":"amount invalid"}`, KindStatus},
		{"redirect with checkout body", http.StatusMultipleChoices, `{"id":"co_1","reference":"ORD1001","paid":true}`, KindStatus},
		{"not modified", http.StatusNotModified, "", KindStatus},
		{"empty body", http.StatusOK, "  ", KindEmpty},
		{"invalid json", http.StatusOK, "<html>", KindDecode},
		{"object without id", http.StatusOK, `{"paid":true}`, KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			client := newTestClient(srv)

			_, err := client.CreateCheckout(context.Background(), testCreds, samplePayload())
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRemoteProtocol)

			pe, ok := AsProtocolError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.body, string(pe.Body))
		})
	}
}

func TestCall_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := newTestClient(srv)

	_, err := client.FetchCheckout(context.Background(), testCreds, "co_1")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
}

func TestCall_TimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	client := NewClient(httpclient.New(cfg), Config{Endpoint: srv.URL}, testLogger())

	_, err := client.FetchCheckout(context.Background(), testCreds, "co_1")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestCall_OpenBreakerIsTransportError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, "")
	cb := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig()), httpclient.CircuitBreakerConfig{
		Name:         "trxps-test",
		MaxRequests:  1,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}, testLogger())
	client := NewClient(cb, Config{Endpoint: srv.URL}, testLogger())

	for i := 0; i < 2; i++ {
		_, err := client.FetchCheckout(context.Background(), testCreds, "co_1")
		assert.ErrorIs(t, err, apperrors.ErrRemoteProtocol)
	}

	_, err := client.FetchCheckout(context.Background(), testCreds, "co_1")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
}

func TestUserAgent_ReplacesWhitespace(t *testing.T) {
	assert.Equal(t, "Trxps/1 Go/go1.24-rc", userAgent("Trxps/1", "Go/go1.24 rc"))
}

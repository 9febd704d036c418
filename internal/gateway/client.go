// Package gateway talks to the Trxps checkout API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
	"github.com/programmierbude/trxps-gateway/pkg/httpclient"
	"github.com/programmierbude/trxps-gateway/pkg/tracing"
)

const (
	// ClientVersion is the API client version announced to Trxps.
	ClientVersion = "2.30.0"
	// DefaultEndpoint is the production API base URL.
	DefaultEndpoint = "https://api.trxps.com"

	tracerName = "trxps-gateway/gateway"
)

// Paths that must not carry the shop id.
var shopIDExempt = []string{"refunds"}

// Credentials select the account a call is made for. They are resolved per
// request from the sales channel settings.
type Credentials struct {
	APIKey   string
	ShopID   string
	TestMode bool
}

func (c Credentials) prefix() string {
	if c.TestMode {
		return "test"
	}
	return "live"
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return apperrors.Configuration("trxps api key is not configured")
	}
	if strings.TrimSpace(c.ShopID) == "" {
		return apperrors.Configuration("trxps shop id is not configured")
	}
	return nil
}

// Config configures a Client.
type Config struct {
	Endpoint      string
	ModuleVersion string
}

// Client is a stateless Trxps API client. It holds no credentials.
type Client struct {
	doer       httpclient.Doer
	endpoint   string
	userAgent  string
	clientInfo string
	logger     *slog.Logger
}

// NewClient creates a Client sending requests through doer.
func NewClient(doer httpclient.Doer, cfg Config, logger *slog.Logger) *Client {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	version := cfg.ModuleVersion
	if version == "" {
		version = "dev"
	}

	return &Client{
		doer:       doer,
		endpoint:   endpoint,
		userAgent:  userAgent("Trxps/"+ClientVersion, "Go/"+runtime.Version(), "TrxpsGo/"+version),
		clientInfo: runtime.GOOS + "/" + runtime.GOARCH,
		logger:     logger,
	}
}

func userAgent(parts ...string) string {
	r := strings.NewReplacer(" ", "-", "\t", "-", "\n", "-", "\r", "-")
	for i, p := range parts {
		parts[i] = r.Replace(p)
	}
	return strings.Join(parts, " ")
}

// CreateCheckout creates a remote checkout session.
func (c *Client) CreateCheckout(ctx context.Context, creds Credentials, payload *domain.CheckoutPayload) (*domain.RemoteCheckout, error) {
	body, err := toMap(payload)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("encode checkout payload: %v", err))
	}
	return c.call(ctx, creds, "create_checkout", http.MethodPost, "checkouts", body)
}

// FetchCheckout loads a remote checkout by id.
func (c *Client) FetchCheckout(ctx context.Context, creds Credentials, remoteID string) (*domain.RemoteCheckout, error) {
	if strings.TrimSpace(remoteID) == "" {
		return nil, apperrors.InvalidInput("checkout id is required")
	}
	return c.call(ctx, creds, "fetch_checkout", http.MethodGet, "checkouts/"+url.PathEscape(remoteID), map[string]any{})
}

func (c *Client) call(ctx context.Context, creds Credentials, operation, method, path string, body map[string]any) (_ *domain.RemoteCheckout, err error) {
	start := time.Now()
	outcome := outcomeOK
	defer func() {
		requestsTotal.WithLabelValues(operation, outcome).Inc()
		requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	if err := creds.validate(); err != nil {
		outcome = outcomeConfig
		return nil, err
	}

	ctx, span := tracing.StartClientSpan(ctx, tracerName, "trxps."+operation,
		attribute.String("http.request.method", method),
		attribute.String("trxps.path", path),
		attribute.String("trxps.mode", creds.prefix()),
	)
	defer func() { tracing.EndSpan(span, err) }()

	apiMethod, _, _ := strings.Cut(path, "/")
	if !slices.Contains(shopIDExempt, apiMethod) {
		body["shop_id"] = strings.TrimSpace(creds.ShopID)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		outcome = outcomeProtocol
		return nil, fmt.Errorf("encode %s body: %w", operation, err)
	}

	reqURL := c.endpoint + "/" + creds.prefix() + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(encoded))
	if err != nil {
		outcome = outcomeTransport
		return nil, apperrors.Transport(operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", strings.TrimSpace(creds.APIKey))
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Trxps-Client-Info", c.clientInfo)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		outcome = outcomeTransport
		c.logger.WarnContext(ctx, "trxps request failed",
			slog.String("operation", operation),
			slog.Bool("circuit_open", errors.Is(err, httpclient.ErrCircuitOpen)),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Transport(operation, err)
	}

	raw, err := httpclient.ReadBody(resp)
	if err != nil {
		outcome = outcomeTransport
		return nil, apperrors.Transport(operation, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	checkout, perr := decodeCheckout(resp.StatusCode, raw)
	if perr != nil {
		outcome = outcomeProtocol
		c.logger.WarnContext(ctx, "trxps returned unusable response",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("kind", string(perr.Kind)),
		)
		return nil, apperrors.RemoteProtocol(operation, perr)
	}
	return checkout, nil
}

func decodeCheckout(status int, raw []byte) (*domain.RemoteCheckout, *ProtocolError) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &ProtocolError{Kind: KindStatus, StatusCode: status, Body: raw}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ProtocolError{Kind: KindEmpty, StatusCode: status, Body: raw}
	}

	var checkout domain.RemoteCheckout
	if err := json.Unmarshal(raw, &checkout); err != nil {
		return nil, &ProtocolError{Kind: KindDecode, StatusCode: status, Body: raw, Err: err}
	}
	if checkout.ID == "" {
		return nil, &ProtocolError{Kind: KindDecode, StatusCode: status, Body: raw, Err: errors.New("checkout without id")}
	}
	return &checkout, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

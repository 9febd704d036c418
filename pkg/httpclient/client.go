package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	// Timeout bounds the whole exchange, including reading the body.
	Timeout time.Duration
	// ConnectTimeout bounds dialing the remote host.
	ConnectTimeout  time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns the settings used for payment gateway calls:
// 2s to connect and 10s overall.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		ConnectTimeout:  2 * time.Second,
		MaxConnsPerHost: 50,
	}
}

// Client wraps http.Client with a pooled transport. Every call is a single
// attempt.
type Client struct {
	httpClient *http.Client
}

// New creates a new HTTP client.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 2 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Do sends req once. Any response, including 5xx, is returned to the
// caller; only transport failures produce an error.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if IsTimeout(err) {
			return nil, fmt.Errorf("%s %s timed out: %w", req.Method, req.URL.Host, err)
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Host, err)
	}
	return resp, nil
}

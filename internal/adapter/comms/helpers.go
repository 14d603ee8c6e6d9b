package comms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

// maxResponseBody is the maximum response body size we read from a backend.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Default gateway timeouts: short connect (local backend), long response
// (model loading).
const (
	defaultConnTimeout = 5 * time.Second
	defaultRespTimeout = 300 * time.Second
)

// Default connection pool settings: few hosts, long-lived connections.
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 20
	defaultIdleConnTimeout     = 120 * time.Second
)

// newHTTPClient creates an *http.Client with pooled transport and timeout
// defaults suitable for model backends.
func newHTTPClient(cfg config.CommsConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}

	maxIdle := cfg.Pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxIdlePerHost := cfg.Pool.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}
	maxConnsPerHost := cfg.Pool.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	idleTimeout := cfg.Pool.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: respTimeout,
			MaxIdleConns:          maxIdle,
			MaxIdleConnsPerHost:   maxIdlePerHost,
			MaxConnsPerHost:       maxConnsPerHost,
			IdleConnTimeout:       idleTimeout,
			ForceAttemptHTTP2:     true,
		},
		Timeout: connTimeout + respTimeout,
	}
}

// doJSONRequest performs a JSON POST request and returns the response body.
// Transport failures and non-200 statuses come back as typed
// *domain.CommunicationError so the agent's prompt policy can classify them.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, transportError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, domain.NewCommunicationError(httpResp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// transportError wraps a request-level failure (backend unreachable,
// timeout, truncated read) as a CommunicationError with status 0.
func transportError(err error) *domain.CommunicationError {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out: " + msg
	}
	return domain.NewCommunicationError(0, msg)
}

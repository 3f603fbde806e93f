package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	clierr "okx-dex-agent/internal/errors"
)

// APIError is the structured OKX API failure: either a non-2xx HTTP response
// or a service envelope whose code is not "0". It travels as the Cause of a
// service-coded error.
type APIError struct {
	Status     int
	StatusText string
	Body       string
	Message    string
	Request    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("okx api error (%s) on %s", e.StatusText, e.Request)
}

// Client issues signed GET requests against the OKX DEX API, retrying with
// linear backoff and classifying failures into typed errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	maxRetries int
	log        zerolog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(baseURL string, creds Credentials, timeout time.Duration, maxRetries int, log zerolog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		creds:      creds,
		maxRetries: maxRetries,
		log:        log,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// envelope is the minimal OKX response shape used for service-level
// classification before the caller's type is decoded.
type envelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Get issues a signed GET for path with the given query parameters, retrying
// transient failures. Empty parameter values are stripped before encoding.
// On success the full response body is decoded into out.
//
// Retry policy: up to maxRetries attempts with a linear 1s, 2s, ... wait
// between attempts. A structured API error on the final attempt is returned
// as-is; any other failure is wrapped into the API error shape on the final
// attempt.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	filtered := make(url.Values, len(params))
	for key, vals := range params {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		filtered[key] = vals
	}
	requestPath := path
	if query := filtered.Encode(); query != "" {
		requestPath += "?" + query
	}

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.do(ctx, requestPath, out)
		if err == nil {
			return nil
		}

		if attempt == c.maxRetries {
			if _, ok := asAPIError(err); ok {
				return err
			}
			return clierr.Wrap(clierr.CodeService, "okx request failed", &APIError{
				Message: err.Error(),
				Request: "GET " + requestPath,
			})
		}

		c.log.Debug().
			Int("attempt", attempt).
			Str("path", requestPath).
			Err(err).
			Msg("okx request failed, retrying")
		if serr := c.sleep(ctx, time.Duration(attempt)*time.Second); serr != nil {
			return clierr.Wrap(clierr.CodeTransport, "request cancelled", serr)
		}
	}

	return clierr.New(clierr.CodeTransport, "max retries exceeded")
}

func (c *Client) do(ctx context.Context, requestPath string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+requestPath, nil)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "build request", err)
	}

	timestamp := c.now().UTC().Format(TimestampLayout)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.creds.Headers(timestamp, http.MethodGet, requestPath) {
		req.Header.Set(k, v)
	}

	c.log.Debug().
		Str("method", http.MethodGet).
		Str("path", requestPath).
		Str("api_key", maskSecret(c.creds.APIKey)).
		Str("timestamp", timestamp).
		Msg("okx request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return clierr.Wrap(clierr.CodeTransport, "okx request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return clierr.Wrap(clierr.CodeTransport, "read okx response", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Str("path", requestPath).
		Str("body", string(buf)).
		Msg("okx response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return clierr.Wrap(clierr.CodeService, "okx api request failed", &APIError{
			Status:     resp.StatusCode,
			StatusText: resp.Status,
			Body:       string(buf),
			Message:    serviceMessage(buf, resp.Status),
			Request:    "GET " + requestPath,
		})
	}

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return clierr.Wrap(clierr.CodeService, "decode okx response", err)
	}
	if env.Code != "0" {
		return clierr.Wrap(clierr.CodeService, "okx service error", &APIError{
			Status:     resp.StatusCode,
			StatusText: resp.Status,
			Body:       string(buf),
			Message:    env.Msg,
			Request:    "GET " + requestPath,
		})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return clierr.Wrap(clierr.CodeService, "decode okx response", err)
	}
	return nil
}

func asAPIError(err error) (*APIError, bool) {
	cErr, ok := clierr.As(err)
	if !ok || cErr.Cause == nil {
		return nil, false
	}
	apiErr, ok := cErr.Cause.(*APIError)
	return apiErr, ok
}

// serviceMessage extracts the service msg from an error body when it is the
// standard envelope, falling back to the HTTP status line.
func serviceMessage(body []byte, status string) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Msg != "" {
		return env.Msg
	}
	return status
}

func maskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:4] + "****"
}

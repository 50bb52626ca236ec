package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBodyBytes = 1 << 20

// Request outcomes reported to the Observer.
const (
	OutcomeSuccess   = "success"
	OutcomeTimeout   = "timeout"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeCanceled  = "canceled"
	OutcomeRejected  = "rejected"
)

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets an extra header on the request. It is applied after the
// standard headers.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// Do performs one call against the service. body, when non-nil, is sent as
// JSON; a 2xx response is decoded into out when out is non-nil. Failures
// are reported to the error hook before being returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	start := time.Now()
	run := func() error { return c.doRequest(ctx, method, path, body, out, opts...) }
	var err error
	if c.guard != nil {
		err = c.guard.Execute(run)
	} else {
		err = run()
	}
	if c.observer != nil {
		c.observer.ObserveRequest(routeOf(path), method, outcomeOf(err), time.Since(start))
	}
	if err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, method, path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classify(ctx, reqCtx, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return c.classify(ctx, reqCtx, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// buildRequest creates a new HTTP request with the standard headers.
func (c *Client) buildRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	plan, userID := c.identity()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Plan", string(plan))
	req.Header.Set("X-User-Id", userID)

	return req, nil
}

// classify turns an expired request deadline into ErrTimeout. A deadline
// or cancellation coming from the caller's own context is left as is.
func (c *Client) classify(parent, reqCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return err
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || json.Unmarshal(raw, &payload) != nil {
		return apiErr
	}
	var detail string
	if json.Unmarshal(payload.Detail, &detail) == nil {
		apiErr.Detail = detail
	}
	return apiErr
}

func routeOf(path string) string {
	if strings.HasPrefix(path, "/ai/chat/") && strings.HasSuffix(path, "/history") {
		return "/ai/chat/{id}/history"
	}
	return path
}

func outcomeOf(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrServiceUnavailable):
		return OutcomeRejected
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.As(err, &apiErr):
		return OutcomeHTTPError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeTransport
	}
}

// IsServiceFailure reports whether err means the service itself is failing:
// a timeout, a transport error or a 5xx response. Client errors such as a
// 403 for the free plan and caller cancellations are not service failures.
func IsServiceFailure(err error) bool {
	switch outcomeOf(err) {
	case OutcomeTimeout, OutcomeTransport:
		return true
	case OutcomeHTTPError:
		return StatusCode(err) >= http.StatusInternalServerError
	default:
		return false
	}
}

package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPremiumRequired is returned by chat operations on the free plan,
	// and matches any 403 response from the service.
	ErrPremiumRequired = errors.New("chat is only available on the premium plan")

	// ErrNoConversation is returned when a chat operation needs a
	// conversation id and none was given or stored.
	ErrNoConversation = errors.New("no active conversation: call StartChat first")

	// ErrTimeout is returned when a request does not complete within the
	// configured timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrServiceUnavailable is returned when a Guard rejects a request
	// without sending it, e.g. while a circuit breaker is open.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	// Detail is the server-supplied message, empty when none was sent.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is makes a 403 response match ErrPremiumRequired.
func (e *APIError) Is(target error) bool {
	return target == ErrPremiumRequired && e.StatusCode == http.StatusForbidden
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

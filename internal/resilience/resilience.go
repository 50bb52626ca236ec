// Package resilience provides the circuit breaker that protects the
// Longopass AI service from a flood of requests while it is failing.
package resilience

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/edgard/longopass/internal/client"
)

// CircuitBreakerConfig holds configuration for circuit breakers.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures is the number of consecutive service failures that
	// opens the circuit.
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before a trial
	// request is let through.
	OpenTimeout time.Duration
	// HalfOpenLimit is the number of trial requests allowed while half open.
	HalfOpenLimit int
	// ResetInterval clears the failure counts while closed. Zero never
	// clears them.
	ResetInterval time.Duration
	OnStateChange func(name string, from, to gobreaker.State)
}

// CircuitBreaker implements client.Guard with gobreaker.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a new circuit breaker. Only service failures
// (timeouts, transport errors, 5xx responses) count towards opening it.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "circuit_breaker", "name", cfg.Name)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.HalfOpenLimit),
		Interval:    cfg.ResetInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !client.IsServiceFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs req unless the circuit is open. A rejected request returns
// an error matching client.ErrServiceUnavailable.
func (b *CircuitBreaker) Execute(req func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, req()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%w: %w", client.ErrServiceUnavailable, err)
	}
	return err
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

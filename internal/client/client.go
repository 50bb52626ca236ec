// Package client implements the Longopass AI service client. It wraps the
// service's HTTP endpoint family with a request executor that attaches the
// user headers and bounds every call with a timeout, and exposes typed quiz,
// lab, chat and health operations on top of it.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Plan is the subscription tier of the calling user.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

const (
	DefaultBaseURL = "https://longopass-ai.onrender.com"
	DefaultTimeout = 30 * time.Second
)

// ParsePlan converts user input into a Plan. An empty string means free.
func ParsePlan(s string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlanFree:
		return PlanFree, nil
	case PlanPremium:
		return PlanPremium, nil
	default:
		return "", fmt.Errorf("unknown plan %q (want free or premium)", s)
	}
}

// Config holds the connection and identity settings of a Client.
// Zero values are replaced by defaults in New.
type Config struct {
	BaseURL  string        `validate:"required,url"`
	UserPlan Plan          `validate:"oneof=free premium"`
	UserID   string        `validate:"required"`
	Timeout  time.Duration `validate:"gt=0"`

	// AutoStartChat makes SendChatMessage create a conversation when none
	// is stored instead of failing with ErrNoConversation.
	AutoStartChat bool
}

// LabEvent is passed to Hooks.OnLabComplete.
type LabEvent struct {
	Type string // "single" or "summary"
	Data json.RawMessage
}

// ChatEvent is passed to Hooks.OnChatMessage.
type ChatEvent struct {
	Type           string
	Message        string
	ConversationID int64
	Model          string
	Latency        time.Duration
}

// Hooks are optional completion callbacks. OnError sees every failure
// before it is returned to the caller.
type Hooks struct {
	OnQuizComplete func(result json.RawMessage)
	OnLabComplete  func(LabEvent)
	OnChatMessage  func(ChatEvent)
	OnError        func(error)
}

// Observer receives one call per executed request.
type Observer interface {
	ObserveRequest(route, method, outcome string, duration time.Duration)
}

// Guard wraps the execution of every request. Implementations that refuse
// to run a request must return an error matching ErrServiceUnavailable.
type Guard interface {
	Execute(req func() error) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Clients built for many
// sessions should share one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHooks registers completion callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

// WithObserver registers a request observer, typically Prometheus metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithGuard runs every request through g, typically a circuit breaker
// shared by all clients talking to the same service.
func WithGuard(g Guard) Option {
	return func(c *Client) { c.guard = g }
}

// WithLogger sets the logger used for operation failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client talks to the Longopass AI service on behalf of one user.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	autoStart  bool
	httpClient *http.Client
	hooks      Hooks
	observer   Observer
	guard      Guard
	logger     *slog.Logger

	mu             sync.RWMutex
	plan           Plan
	userID         string
	conversationID int64
	// epoch increments on every user change so a conversation started for
	// a previous user is never stored.
	epoch uint64
}

// New validates cfg, fills defaults and returns a ready Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserPlan == "" {
		cfg.UserPlan = PlanFree
	}
	if cfg.UserID == "" {
		cfg.UserID = GenerateUserID()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		autoStart:  cfg.AutoStartChat,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		plan:       cfg.UserPlan,
		userID:     cfg.UserID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "longopass_client")
	return c, nil
}

// GenerateUserID returns a random identifier of the form user_xxxxxxxxx.
func GenerateUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Plan returns the current plan.
func (c *Client) Plan() Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plan
}

// UserID returns the current user id.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// ConversationID returns the stored conversation id, or 0 when none.
func (c *Client) ConversationID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conversationID
}

// UpdateUserPlan switches the plan sent with every request.
func (c *Client) UpdateUserPlan(plan Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plan = plan
}

// UpdateUserID switches the user and discards the stored conversation.
func (c *Client) UpdateUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.conversationID = 0
	c.epoch++
}

// SetConversationID stores id as the active conversation, e.g. when a
// session is restored from persistence.
func (c *Client) SetConversationID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationID = id
}

func (c *Client) identity() (plan Plan, userID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plan, c.userID
}

// fail reports err to the error hook and returns it unchanged.
func (c *Client) fail(err error) error {
	if c.hooks.OnError != nil {
		c.hooks.OnError(err)
	}
	return err
}

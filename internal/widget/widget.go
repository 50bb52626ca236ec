// Package widget implements the chat widget: a session-scoped surface that
// manages one conversation with the Longopass AI service and renders it
// through a Renderer.
package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/recommend"
)

// Named events accepted by Dispatch.
const (
	EventQuiz = "lp-ai-quiz"
	EventLab  = "lp-ai-lab"
)

// ErrUnknownEvent is returned by Dispatch for unrecognized event names.
var ErrUnknownEvent = errors.New("unknown widget event")

// Backend is the part of the service client the widget drives.
type Backend interface {
	Plan() client.Plan
	UserID() string
	ConversationID() int64
	UpdateUserPlan(plan client.Plan)
	UpdateUserID(userID string)
	SetConversationID(id int64)

	StartChat(ctx context.Context) (int64, error)
	SendChatMessage(ctx context.Context, text string, conversationID int64) (*client.ChatReply, error)
	AnalyzeQuizPayload(ctx context.Context, payload any) (*client.AnalyzeResponse, error)
	AnalyzeLabResults(ctx context.Context, results any) (*client.AnalyzeResponse, error)
}

// StateStore receives a snapshot of the session after every mutation.
type StateStore interface {
	Save(ctx context.Context, key string, s Session) error
}

// Messages are the fixed texts shown by the widget.
type Messages struct {
	UpgradeNotice        string
	PremiumOnly          string
	GenericError         string
	AlertError           string
	RecommendationsTitle string
	EmptyRecommendations string
	DisclaimerLabel      string
	ProductsTitle        string
}

// DefaultMessages returns the built-in texts.
func DefaultMessages() Messages {
	return Messages{
		UpgradeNotice:        "Chat is available to premium users only. Please upgrade your account.",
		PremiumOnly:          "Chat is available to premium users only.",
		GenericError:         "Something went wrong.",
		AlertError:           "Error",
		RecommendationsTitle: "AI recommendations:",
		EmptyRecommendations: "(none)",
		DisclaimerLabel:      "Disclaimer:",
		ProductsTitle:        "Matching products:",
	}
}

// Option configures a Widget.
type Option func(*Widget)

// WithMessages overrides the default texts. Empty fields keep the default.
func WithMessages(m Messages) Option {
	return func(w *Widget) {
		d := &w.msgs
		setIf(&d.UpgradeNotice, m.UpgradeNotice)
		setIf(&d.PremiumOnly, m.PremiumOnly)
		setIf(&d.GenericError, m.GenericError)
		setIf(&d.AlertError, m.AlertError)
		setIf(&d.RecommendationsTitle, m.RecommendationsTitle)
		setIf(&d.EmptyRecommendations, m.EmptyRecommendations)
		setIf(&d.DisclaimerLabel, m.DisclaimerLabel)
		setIf(&d.ProductsTitle, m.ProductsTitle)
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// WithEngine makes quiz alerts list catalog products for the recommended
// supplements.
func WithEngine(e *recommend.Engine) Option {
	return func(w *Widget) { w.engine = e }
}

// WithStateStore persists the session under key after every mutation.
func WithStateStore(store StateStore, key string) Option {
	return func(w *Widget) {
		w.store = store
		w.storeKey = key
	}
}

// WithSession restores a previously saved session.
func WithSession(s Session) Option {
	return func(w *Widget) {
		w.session = s
		w.restored = true
	}
}

// WithLogger sets the widget logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) {
		if l != nil {
			w.logger = l
		}
	}
}

// Widget is one chat surface. Actions on a widget are serialized; separate
// widgets share nothing.
type Widget struct {
	mu       sync.Mutex
	backend  Backend
	renderer Renderer
	engine   *recommend.Engine
	msgs     Messages
	store    StateStore
	storeKey string
	logger   *slog.Logger

	session  Session
	restored bool
}

// New returns a closed widget driving backend. Unless a session is
// restored, the plan and user id are taken from backend.
func New(backend Backend, renderer Renderer, opts ...Option) *Widget {
	w := &Widget{
		backend:  backend,
		renderer: renderer,
		msgs:     DefaultMessages(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "widget")

	if w.restored {
		if w.session.Plan == "" {
			w.session.Plan = client.PlanFree
		}
		backend.UpdateUserPlan(w.session.Plan)
		backend.UpdateUserID(w.session.UserID)
		backend.SetConversationID(w.session.ConversationID)
	} else {
		w.session = Session{
			Plan:           backend.Plan(),
			UserID:         backend.UserID(),
			ConversationID: backend.ConversationID(),
		}
	}
	return w
}

// Session returns a copy of the current session.
func (w *Widget) Session() Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// State returns the current lifecycle state.
func (w *Widget) State() State {
	return w.Session().State()
}

// Open shows the surface. Free users get an upgrade notice; premium users
// without a conversation get one started.
func (w *Widget) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.session.Open = true
	w.renderer.SetVisible(ctx, true)
	defer w.save(ctx)

	if w.session.Plan != client.PlanPremium {
		w.renderer.Clear(ctx)
		w.renderer.AddMessage(ctx, RoleAssistant, w.msgs.UpgradeNotice)
		return nil
	}
	if w.session.ConversationID == 0 {
		return w.startLocked(ctx)
	}
	return nil
}

// Close hides the surface. The conversation is kept.
func (w *Widget) Close(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.session.Open = false
	w.renderer.SetVisible(ctx, false)
	w.save(ctx)
}

// Send posts text to the conversation, starting one first when needed.
// Blank text is ignored.
func (w *Widget) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.ConversationID == 0 {
		err := w.startLocked(ctx)
		w.save(ctx)
		if err != nil {
			return err
		}
	}

	w.renderer.AddMessage(ctx, RoleUser, text)
	reply, err := w.backend.SendChatMessage(ctx, text, w.session.ConversationID)
	if err != nil {
		w.logger.WarnContext(ctx, "Chat message failed", "conversation_id", w.session.ConversationID, "error", err)
		w.renderer.AddMessage(ctx, RoleAssistant, w.errorText(err, w.msgs.GenericError))
		return err
	}
	w.renderer.AddMessage(ctx, RoleAssistant, reply.Reply)
	return nil
}

// Quiz analyzes a quiz payload and shows the result as an alert.
func (w *Widget) Quiz(ctx context.Context, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if payload == nil {
		payload = map[string]any{}
	}
	resp, err := w.backend.AnalyzeQuizPayload(ctx, payload)
	if err != nil {
		w.logger.WarnContext(ctx, "Quiz analysis failed", "error", err)
		w.renderer.Alert(ctx, w.errorText(err, w.msgs.AlertError))
		return err
	}

	text := w.formatAnalysis(resp)
	if w.engine != nil {
		recs := w.engine.Recommend(ctx, recommend.FromAnalysis(resp))
		if len(recs) > 0 {
			text += "\n\n" + w.msgs.ProductsTitle + "\n" + recommend.Format(recs)
		}
	}
	w.renderer.Alert(ctx, text)
	return nil
}

// Lab analyzes lab results and shows the result as an alert.
func (w *Widget) Lab(ctx context.Context, results any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if results == nil {
		results = []any{}
	}
	resp, err := w.backend.AnalyzeLabResults(ctx, results)
	if err != nil {
		w.logger.WarnContext(ctx, "Lab analysis failed", "error", err)
		w.renderer.Alert(ctx, w.errorText(err, w.msgs.AlertError))
		return err
	}
	w.renderer.Alert(ctx, w.formatAnalysis(resp))
	return nil
}

// SetPlan switches the plan. An empty plan means free.
func (w *Widget) SetPlan(ctx context.Context, plan string) error {
	p, err := client.ParsePlan(plan)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.session.Plan = p
	w.backend.UpdateUserPlan(p)
	w.save(ctx)
	return nil
}

// SetUserID switches the user and drops the conversation.
func (w *Widget) SetUserID(ctx context.Context, userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.session.UserID = strings.TrimSpace(userID)
	w.session.ConversationID = 0
	w.backend.UpdateUserID(w.session.UserID)
	w.save(ctx)
}

// Dispatch handles a named event. A missing quiz detail is sent as {} and a
// missing lab detail as [].
func (w *Widget) Dispatch(ctx context.Context, event string, detail json.RawMessage) error {
	empty := len(bytes.TrimSpace(detail)) == 0 || bytes.Equal(bytes.TrimSpace(detail), []byte("null"))

	switch event {
	case EventQuiz:
		if empty {
			return w.Quiz(ctx, nil)
		}
		return w.Quiz(ctx, detail)
	case EventLab:
		if empty {
			return w.Lab(ctx, nil)
		}
		return w.Lab(ctx, detail)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// startLocked creates a conversation. A premium refusal renders the
// premium-only notice; other failures render the error.
func (w *Widget) startLocked(ctx context.Context) error {
	id, err := w.backend.StartChat(ctx)
	if err != nil {
		if errors.Is(err, client.ErrPremiumRequired) {
			w.renderer.AddMessage(ctx, RoleAssistant, w.msgs.PremiumOnly)
		} else {
			w.logger.WarnContext(ctx, "Failed to start conversation", "error", err)
			w.renderer.AddMessage(ctx, RoleAssistant, w.errorText(err, w.msgs.GenericError))
		}
		return err
	}
	w.session.ConversationID = id
	w.logger.DebugContext(ctx, "Conversation started", "conversation_id", id, "user_id", w.session.UserID)
	return nil
}

func (w *Widget) errorText(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

func (w *Widget) formatAnalysis(resp *client.AnalyzeResponse) string {
	var b strings.Builder
	b.WriteString(w.msgs.RecommendationsTitle)
	b.WriteString("\n")
	if len(resp.Recommendations) == 0 {
		b.WriteString(w.msgs.EmptyRecommendations)
	}
	for i, r := range resp.Recommendations {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s: %s", r.Name, r.Reason)
	}
	fmt.Fprintf(&b, "\n\n%s %s", w.msgs.DisclaimerLabel, resp.Disclaimer)
	return b.String()
}

func (w *Widget) save(ctx context.Context) {
	if w.store == nil {
		return
	}
	if err := w.store.Save(ctx, w.storeKey, w.session); err != nil {
		w.logger.ErrorContext(ctx, "Failed to save widget session", "key", w.storeKey, "error", err)
	}
}

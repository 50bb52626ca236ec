package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/longopass/internal/client"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakeService records every request and answers from a per-path table.
type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	nextConv atomic.Int64
	handlers map[string]http.HandlerFunc
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	fs := &fakeService{handlers: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if ok {
		h(w, r)
		return
	}

	switch r.URL.Path {
	case "/ai/chat/start":
		writeJSON(w, http.StatusOK, map[string]any{"conversation_id": f.nextConv.Add(1)})
	case "/ai/chat":
		writeJSON(w, http.StatusOK, map[string]any{
			"conversation_id": body["conversation_id"],
			"reply":           "echo: " + body["text"].(string),
			"used_model":      "test-model",
			"latency_ms":      42,
		})
	case "/health":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "longopass-ai"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (f *fakeService) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeService) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func (f *fakeService) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, baseURL string, plan client.Plan, opts ...client.Option) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: baseURL, UserPlan: plan, UserID: "user_test"}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c, err := client.New(client.Config{})
	require.NoError(t, err)
	assert.Equal(t, client.PlanFree, c.Plan())
	assert.Regexp(t, `^user_[0-9a-f]{9}$`, c.UserID())
	assert.Zero(t, c.ConversationID())

	_, err = client.New(client.Config{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = client.New(client.Config{UserPlan: "gold"})
	assert.Error(t, err)
}

func TestParsePlan(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input   string
		want    client.Plan
		wantErr bool
	}{
		{input: "", want: client.PlanFree},
		{input: "free", want: client.PlanFree},
		{input: " Premium ", want: client.PlanPremium},
		{input: "gold", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			got, err := client.ParsePlan(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	c := newClient(t, srv.URL, client.PlanPremium)

	_, err := c.HealthCheck(context.Background())
	require.NoError(t, err)

	h := fs.last().Header
	assert.Equal(t, []string{"premium"}, h.Values("X-User-Plan"))
	assert.Equal(t, []string{"user_test"}, h.Values("X-User-ID"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))

	err = c.Do(context.Background(), http.MethodGet, "/health", nil, nil, client.WithHeader("X-Trace", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", fs.last().Header.Get("X-Trace"))
}

func TestChatRequiresPremium(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	var hookErrs []error
	c := newClient(t, srv.URL, client.PlanFree, client.WithHooks(client.Hooks{
		OnError: func(err error) { hookErrs = append(hookErrs, err) },
	}))

	_, err := c.StartChat(context.Background())
	assert.ErrorIs(t, err, client.ErrPremiumRequired)

	_, err = c.SendChatMessage(context.Background(), "hi", 7)
	assert.ErrorIs(t, err, client.ErrPremiumRequired)

	_, err = c.GetChatHistory(context.Background(), 7)
	assert.ErrorIs(t, err, client.ErrPremiumRequired)

	assert.Empty(t, fs.paths())
	assert.Len(t, hookErrs, 3)
}

func TestSendChatMessageWithoutConversation(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	c := newClient(t, srv.URL, client.PlanPremium)

	_, err := c.SendChatMessage(context.Background(), "hi", 0)
	assert.ErrorIs(t, err, client.ErrNoConversation)
	assert.Empty(t, fs.paths())
}

func TestSendChatMessageAutoStart(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	var events []client.ChatEvent
	c, err := client.New(client.Config{
		BaseURL:       srv.URL,
		UserPlan:      client.PlanPremium,
		UserID:        "user_test",
		AutoStartChat: true,
	}, client.WithHooks(client.Hooks{
		OnChatMessage: func(ev client.ChatEvent) { events = append(events, ev) },
	}))
	require.NoError(t, err)

	reply, err := c.SendChatMessage(context.Background(), "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply.Reply)
	assert.Equal(t, []string{"POST /ai/chat/start", "POST /ai/chat"}, fs.paths())
	assert.Equal(t, int64(1), c.ConversationID())

	require.Len(t, events, 1)
	assert.Equal(t, client.ChatEvent{
		Type:           "response",
		Message:        "echo: hello",
		ConversationID: 1,
		Model:          "test-model",
		Latency:        42 * time.Millisecond,
	}, events[0])

	_, err = c.SendChatMessage(context.Background(), "again", 0)
	require.NoError(t, err)
	assert.Len(t, fs.paths(), 3, "second send reuses the conversation")
}

func TestUpdateUserIDClearsConversation(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	c, err := client.New(client.Config{
		BaseURL:       srv.URL,
		UserPlan:      client.PlanPremium,
		UserID:        "user_a",
		AutoStartChat: true,
	})
	require.NoError(t, err)

	id, err := c.StartChat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, c.ConversationID())

	c.UpdateUserID("user_b")
	assert.Zero(t, c.ConversationID())

	_, err = c.SendChatMessage(context.Background(), "hi", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /ai/chat/start", "POST /ai/chat/start", "POST /ai/chat"}, fs.paths())
	assert.Equal(t, "user_b", fs.last().Header.Get("X-User-Id"))
	assert.Equal(t, int64(2), c.ConversationID())
}

func TestAnalyzeSingleLab(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	fs.handle("/ai/lab/single", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"summary": "normal"})
	})
	var events []client.LabEvent
	c := newClient(t, srv.URL, client.PlanFree, client.WithHooks(client.Hooks{
		OnLabComplete: func(ev client.LabEvent) { events = append(events, ev) },
	}))

	test := client.LabTest{Name: "Vitamin D", Value: 18, Unit: "ng/mL", ReferenceRange: "30-100"}
	result, err := c.AnalyzeSingleLab(context.Background(), test)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"normal"}`, string(result))

	assert.Equal(t, []string{"POST /ai/lab/single"}, fs.paths())
	assert.Equal(t, map[string]any{
		"name": "Vitamin D", "value": 18.0, "unit": "ng/mL", "reference_range": "30-100",
	}, fs.last().Body["test"])

	require.Len(t, events, 1)
	assert.Equal(t, "single", events[0].Type)
	assert.JSONEq(t, `{"summary":"normal"}`, string(events[0].Data))
}

func TestAnalyzeMultipleLabsClampsSessions(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	var events []client.LabEvent
	c := newClient(t, srv.URL, client.PlanFree, client.WithHooks(client.Hooks{
		OnLabComplete: func(ev client.LabEvent) { events = append(events, ev) },
	}))

	_, err := c.AnalyzeMultipleLabs(context.Background(), []client.LabTest{{Name: "Ferritin", Value: 12}}, 0)
	require.NoError(t, err)

	body := fs.last().Body
	assert.Equal(t, 1.0, body["total_test_sessions"])
	assert.Len(t, body["tests"], 1)
	require.Len(t, events, 1)
	assert.Equal(t, "summary", events[0].Type)
}

func TestSubmitQuiz(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	var got json.RawMessage
	c := newClient(t, srv.URL, client.PlanFree, client.WithHooks(client.Hooks{
		OnQuizComplete: func(r json.RawMessage) { got = r },
	}))

	_, err := c.SubmitQuiz(context.Background(), map[string]any{"age_range": "26-35"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age_range": "26-35"}, fs.last().Body["answers"])
	assert.JSONEq(t, `{"ok":true}`, string(got))
}

func TestAnalyzeEndpoints(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	analyze := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"recommendations": []map[string]any{{"name": "Magnezyum", "reason": "Eksiklik var", "source": "consensus"}},
			"disclaimer":      "info only",
		})
	}
	fs.handle("/ai/quiz", analyze)
	fs.handle("/ai/lab/analyze", analyze)
	c := newClient(t, srv.URL, client.PlanFree)

	resp, err := c.AnalyzeQuizPayload(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, fs.last().Body["payload"])
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "Magnezyum", resp.Recommendations[0].Name)
	assert.Equal(t, "info only", resp.Disclaimer)

	_, err = c.AnalyzeLabResults(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, fs.last().Body["results"])
}

func TestGetChatHistory(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	fs.handle("/ai/chat/5/history", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"role": "user", "content": "hi", "ts": "2024-01-01T10:00:00"},
			{"role": "assistant", "content": "hello", "ts": "2024-01-01T10:00:01"},
		})
	})
	c := newClient(t, srv.URL, client.PlanPremium)

	_, err := c.GetChatHistory(context.Background(), 0)
	assert.ErrorIs(t, err, client.ErrNoConversation)

	c.SetConversationID(5)
	history, err := c.GetChatHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "2024-01-01T10:00:00", history[0].Timestamp)
	assert.Equal(t, []string{"GET /ai/chat/5/history"}, fs.paths())
}

func TestServerErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantPremium bool
	}{
		{
			name:        "detail string",
			status:      http.StatusNotFound,
			body:        `{"detail":"Konuşma bulunamadı"}`,
			wantMessage: "Konuşma bulunamadı",
		},
		{
			name:        "no detail",
			status:      http.StatusInternalServerError,
			body:        `oops`,
			wantMessage: "HTTP 500: Internal Server Error",
		},
		{
			name:        "validation detail list",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail":[{"loc":["body"],"msg":"field required"}]}`,
			wantMessage: "HTTP 422: Unprocessable Entity",
		},
		{
			name:        "forbidden",
			status:      http.StatusForbidden,
			body:        `{"detail":"Chat için premium gereklidir."}`,
			wantMessage: "Chat için premium gereklidir.",
			wantPremium: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs, srv := newFakeService(t)
			fs.handle("/health", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			var hookErr error
			c := newClient(t, srv.URL, client.PlanPremium, client.WithHooks(client.Hooks{
				OnError: func(err error) { hookErr = err },
			}))

			_, err := c.HealthCheck(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.wantMessage, err.Error())
			assert.Equal(t, tc.status, client.StatusCode(err))
			assert.Equal(t, tc.wantPremium, errors.Is(err, client.ErrPremiumRequired))
			assert.NotErrorIs(t, err, client.ErrTimeout)
			assert.Equal(t, err, hookErr)
		})
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	fs.handle("/health", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	var hookErr error
	c, err := client.New(client.Config{BaseURL: srv.URL, UserID: "user_test", Timeout: 50 * time.Millisecond},
		client.WithHooks(client.Hooks{OnError: func(err error) { hookErr = err }}))
	require.NoError(t, err)

	_, err = c.HealthCheck(context.Background())
	require.ErrorIs(t, err, client.ErrTimeout)
	assert.True(t, strings.HasPrefix(err.Error(), "request timed out"))
	assert.Zero(t, client.StatusCode(err))
	assert.ErrorIs(t, hookErr, client.ErrTimeout)
}

func TestCallerCancellationIsNotTimeout(t *testing.T) {
	t.Parallel()

	_, srv := newFakeService(t)
	c := newClient(t, srv.URL, client.PlanFree)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.HealthCheck(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, client.ErrTimeout)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveRequest(route, method, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+" "+route+" "+outcome)
}

func TestObserver(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	fs.handle("/ai/chat/9/history", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	obs := &recordingObserver{}
	c := newClient(t, srv.URL, client.PlanPremium, client.WithObserver(obs))

	_, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	_, err = c.GetChatHistory(context.Background(), 9)
	require.Error(t, err)

	assert.Equal(t, []string{
		"GET /health success",
		"GET /ai/chat/{id}/history http_error",
	}, obs.calls)
}

type closedGuard struct{ runs int }

func (g *closedGuard) Execute(req func() error) error {
	g.runs++
	if g.runs > 1 {
		return fmt.Errorf("%w: circuit open", client.ErrServiceUnavailable)
	}
	return req()
}

func TestGuardRejectsRequests(t *testing.T) {
	t.Parallel()

	fs, srv := newFakeService(t)
	obs := &recordingObserver{}
	var hookErrs []error
	guard := &closedGuard{}
	c := newClient(t, srv.URL, client.PlanFree,
		client.WithGuard(guard),
		client.WithObserver(obs),
		client.WithHooks(client.Hooks{OnError: func(err error) { hookErrs = append(hookErrs, err) }}),
	)

	_, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	_, err = c.HealthCheck(context.Background())
	require.ErrorIs(t, err, client.ErrServiceUnavailable)

	assert.Len(t, fs.paths(), 1, "rejected request never reaches the service")
	assert.Equal(t, []string{"GET /health success", "GET /health rejected"}, obs.calls)
	require.Len(t, hookErrs, 1)
	assert.ErrorIs(t, hookErrs[0], client.ErrServiceUnavailable)
}

package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/longopass/internal/bot/handlers"
	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/config"
	"github.com/edgard/longopass/internal/logger"
	"github.com/edgard/longopass/internal/sessions"
	"github.com/edgard/longopass/internal/telegram"
	"github.com/edgard/longopass/internal/widget"
)

const (
	adminID = int64(1)
	chatID  = int64(42)
)

// fakeTelegram records the texts the bot sends.
type fakeTelegram struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseMultipartForm(1 << 20)
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeTelegram) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeService answers like the Longopass AI service and enforces the
// premium plan on chat routes.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	premium := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-User-Plan") != "premium" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"detail":"premium only"}`))
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST /ai/chat/start", premium(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"conversation_id":7}`))
	}))
	mux.HandleFunc("POST /ai/chat", premium(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"hello back","conversation_id":7,"used_model":"m","latency_ms":5}`))
	}))
	mux.HandleFunc("GET /ai/chat/7/history", premium(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello back"}]`))
	}))
	mux.HandleFunc("POST /ai/quiz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"recommendations":[{"name":"Magnesium","reason":"low energy"}],"disclaimer":"not medical advice"}`))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","service":"longopass-ai"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	deps  handlers.HandlerDeps
	tg    *fakeTelegram
	bot   *bot.Bot
	store *sessions.Memory
	cmds  map[string]telegram.RegisteredHandler
}

func newHarness(t *testing.T, limiter *handlers.ChatLimiter) *harness {
	t.Helper()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.API.BaseURL = fakeService(t).URL
	cfg.Telegram.AdminUserID = adminID

	tg := &fakeTelegram{}
	tgSrv := httptest.NewServer(tg)
	t.Cleanup(tgSrv.Close)

	b, err := bot.New("123:abc", bot.WithSkipGetMe(), bot.WithServerURL(tgSrv.URL))
	require.NoError(t, err)

	store := sessions.NewMemory()
	log := logger.Discard()
	deps := handlers.HandlerDeps{
		Logger:  log,
		Config:  cfg,
		Chats:   handlers.NewChats(cfg, store, nil, nil, log),
		Limiter: limiter,
	}
	return &harness{deps: deps, tg: tg, bot: b, store: store, cmds: handlers.RegisterAllCommands(deps)}
}

func (h *harness) command(t *testing.T, from int64, text string) {
	t.Helper()
	name := strings.Fields(text)[0]
	reg, ok := h.cmds[name]
	require.True(t, ok, "command %s registered", name)
	telegram.ApplyMiddleware(reg.Handler, reg.Middleware)(context.Background(), h.bot, update(from, text))
}

func (h *harness) message(from int64, text string) {
	handlers.DefaultHandler(h.deps)(context.Background(), h.bot, update(from, text))
}

func update(from int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   1,
			Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
			From: &models.User{ID: from},
			Text: text,
		},
	}
}

func TestFreeChatGetsPremiumNotice(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.message(adminID, "hello")

	assert.Equal(t, []string{h.deps.Config.Messages.PremiumOnly}, h.tg.sent())
}

func TestPremiumChatFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.command(t, adminID, "/plan premium")
	h.message(adminID, "hello")
	h.command(t, adminID, "/history")

	sent := h.tg.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, h.deps.Config.Messages.PlanUpdatedMsg, sent[0])
	assert.Equal(t, "hello back", sent[1])
	assert.Equal(t, "👤 hi\n🤖 hello back", sent[2])

	saved, ok, err := h.store.Load(context.Background(), handlers.SessionKey(chatID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, client.PlanPremium, saved.Plan)
	assert.Equal(t, int64(7), saved.ConversationID)
	assert.Equal(t, "tg_42", saved.UserID)
}

func TestAdminCommandsRejectOthers(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.command(t, 99, "/plan premium")
	h.command(t, 99, "/userid someone")

	msgs := h.deps.Config.Messages
	assert.Equal(t, []string{msgs.ErrorUnauthorizedMsg, msgs.ErrorUnauthorizedMsg}, h.tg.sent())
	assert.Equal(t, 0, h.deps.Chats.Len())
}

func TestAdminCommandUsage(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.command(t, adminID, "/plan")
	h.command(t, adminID, "/plan gold")
	h.command(t, adminID, "/userid")
	h.command(t, adminID, "/userid user_abc")

	msgs := h.deps.Config.Messages
	assert.Equal(t, []string{msgs.UsagePlanMsg, msgs.UsagePlanMsg, msgs.UsageUserIDMsg, msgs.UserIDUpdatedMsg}, h.tg.sent())

	chat, err := h.deps.Chats.Get(context.Background(), h.bot, chatID)
	require.NoError(t, err)
	assert.Equal(t, "user_abc", chat.Client.UserID())
}

func TestQuizCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.command(t, adminID, "/quiz {not json")
	h.command(t, adminID, `/quiz {"answers":{"energy":"low"}}`)

	sent := h.tg.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, h.deps.Config.Messages.InvalidJSONMsg, sent[0])
	assert.Equal(t, "AI recommendations:\n• Magnesium: low energy\n\nDisclaimer: not medical advice", sent[1])
}

func TestHealthCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.command(t, adminID, "/health")

	assert.Equal(t, []string{h.deps.Config.Messages.HealthOKMsg}, h.tg.sent())
}

func TestHistoryWithoutConversation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.command(t, adminID, "/plan premium")
	h.command(t, adminID, "/history")

	msgs := h.deps.Config.Messages
	assert.Equal(t, []string{msgs.PlanUpdatedMsg, msgs.HistoryEmptyMsg}, h.tg.sent())
}

func TestUnknownCommandShowsHelp(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.message(adminID, "/nope")

	assert.Equal(t, []string{h.deps.Config.Messages.Help}, h.tg.sent())
}

func TestRateLimitedChat(t *testing.T) {
	t.Parallel()
	h := newHarness(t, handlers.NewChatLimiter(0.001, 1))

	h.command(t, adminID, "/help")
	h.command(t, adminID, "/help")

	msgs := h.deps.Config.Messages
	assert.Equal(t, []string{msgs.Help, msgs.RateLimitedMsg}, h.tg.sent())
}

func TestChatsRestoreSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	sess := widget.Session{Plan: client.PlanPremium, UserID: "restored", ConversationID: 11}
	require.NoError(t, h.store.Save(context.Background(), handlers.SessionKey(chatID), sess))

	chat, err := h.deps.Chats.Get(context.Background(), h.bot, chatID)
	require.NoError(t, err)
	assert.Equal(t, client.PlanPremium, chat.Client.Plan())
	assert.Equal(t, "restored", chat.Client.UserID())
	assert.Equal(t, int64(11), chat.Client.ConversationID())

	again, err := h.deps.Chats.Get(context.Background(), h.bot, chatID)
	require.NoError(t, err)
	assert.Same(t, chat, again)
	assert.Equal(t, 1, h.deps.Chats.Len())
}

func TestChatLimiter(t *testing.T) {
	t.Parallel()

	l := handlers.NewChatLimiter(0.001, 2)
	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2), "chats have separate budgets")

	unlimited := handlers.NewChatLimiter(0, 0)
	for range 100 {
		require.True(t, unlimited.Allow(1))
	}
}

func TestCommandsMenu(t *testing.T) {
	t.Parallel()

	cmds := handlers.Commands()
	require.Len(t, cmds, 10)
	assert.Equal(t, "close", cmds[0].Command)
	for _, c := range cmds {
		assert.NotEmpty(t, c.Description)
	}
}

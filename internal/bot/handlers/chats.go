package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/config"
	"github.com/edgard/longopass/internal/metrics"
	"github.com/edgard/longopass/internal/recommend"
	"github.com/edgard/longopass/internal/sessions"
	"github.com/edgard/longopass/internal/telegram"
	"github.com/edgard/longopass/internal/widget"
)

// Chat is the widget and service client bound to one Telegram chat.
type Chat struct {
	ID     int64
	Widget *widget.Widget
	Client *client.Client
}

// Chats lazily creates one Chat per Telegram chat. Sessions are restored
// from and saved to the session store, so a restart keeps plans, user ids
// and conversations.
type Chats struct {
	cfg        *config.Config
	store      sessions.Store
	engine     *recommend.Engine
	metrics    *metrics.Metrics
	httpClient *http.Client
	clientOpts []client.Option
	logger     *slog.Logger

	mu    sync.Mutex
	chats map[int64]*Chat
}

// NewChats returns an empty registry. engine and m may be nil; clientOpts
// are applied to every chat's client.
func NewChats(cfg *config.Config, store sessions.Store, engine *recommend.Engine, m *metrics.Metrics, logger *slog.Logger, clientOpts ...client.Option) *Chats {
	return &Chats{
		cfg:        cfg,
		store:      store,
		engine:     engine,
		metrics:    m,
		httpClient: &http.Client{},
		clientOpts: clientOpts,
		logger:     logger.With("component", "chats"),
		chats:      make(map[int64]*Chat),
	}
}

// SessionKey is the session store key of a chat.
func SessionKey(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// Get returns the Chat for chatID, creating it on first use.
func (c *Chats) Get(ctx context.Context, s telegram.Sender, chatID int64) (*Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chat, ok := c.chats[chatID]; ok {
		return chat, nil
	}

	key := SessionKey(chatID)
	saved, found, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to load chat session, starting fresh", "chat_id", chatID, "error", err)
		found = false
	}

	opts := []client.Option{
		client.WithHTTPClient(c.httpClient),
		client.WithLogger(c.logger),
	}
	if c.metrics != nil {
		opts = append(opts, client.WithObserver(c.metrics))
	}
	opts = append(opts, c.clientOpts...)
	cl, err := client.New(client.Config{
		BaseURL:       c.cfg.API.BaseURL,
		UserPlan:      client.Plan(c.cfg.Telegram.Plan),
		UserID:        c.cfg.Telegram.UserIDPrefix + strconv.FormatInt(chatID, 10),
		Timeout:       c.cfg.API.Timeout,
		AutoStartChat: c.cfg.API.AutoStartChat,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for chat %d: %w", chatID, err)
	}

	wopts := []widget.Option{
		widget.WithMessages(WidgetMessages(c.cfg.Messages)),
		widget.WithStateStore(c.store, key),
		widget.WithLogger(c.logger.With("chat_id", chatID)),
	}
	if c.engine != nil {
		wopts = append(wopts, widget.WithEngine(c.engine))
	}
	if found {
		wopts = append(wopts, widget.WithSession(saved))
	}

	chat := &Chat{
		ID:     chatID,
		Widget: widget.New(cl, telegram.NewRenderer(s, chatID, c.logger), wopts...),
		Client: cl,
	}
	c.chats[chatID] = chat
	if c.metrics != nil {
		c.metrics.SetWidgets(len(c.chats))
	}

	c.logger.InfoContext(ctx, "Chat widget created", "chat_id", chatID, "restored", found, "user_id", cl.UserID())
	return chat, nil
}

// Len returns the number of live chats.
func (c *Chats) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chats)
}

// WidgetMessages maps the configured texts onto the widget's.
func WidgetMessages(m config.MessagesConfig) widget.Messages {
	return widget.Messages{
		UpgradeNotice:        m.UpgradeNotice,
		PremiumOnly:          m.PremiumOnly,
		GenericError:         m.GenericError,
		AlertError:           m.AlertError,
		RecommendationsTitle: m.RecommendationsTitle,
		EmptyRecommendations: m.EmptyRecommendations,
		DisclaimerLabel:      m.DisclaimerLabel,
		ProductsTitle:        m.ProductsTitle,
	}
}

package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/edgard/longopass/internal/widget"
)

// Renderer shows a widget in a Telegram chat. The chat is always visible,
// so only assistant messages and alerts produce output; the user's own
// messages are already on screen.
type Renderer struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

// NewRenderer returns a renderer posting to chatID.
func NewRenderer(s Sender, chatID int64, logger *slog.Logger) *Renderer {
	return &Renderer{
		sender: s,
		chatID: chatID,
		logger: logger.With("component", "telegram_renderer", "chat_id", chatID),
	}
}

func (r *Renderer) SetVisible(ctx context.Context, visible bool) {
	r.logger.DebugContext(ctx, "Widget visibility changed", "visible", visible)
}

func (r *Renderer) Clear(context.Context) {}

func (r *Renderer) AddMessage(ctx context.Context, role widget.Role, text string) {
	if role == widget.RoleUser {
		return
	}
	r.send(ctx, text)
}

func (r *Renderer) Alert(ctx context.Context, text string) {
	r.send(ctx, text)
}

func (r *Renderer) send(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if _, err := r.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: r.chatID, Text: text}); err != nil {
		r.logger.ErrorContext(ctx, "Failed to send message", "error", err)
	}
}

package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler processes the /start command using injected dependencies.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", update.Message.From.ID)

	reply(ctx, b, log, chatID, withBotName(h.deps, h.deps.Config.Messages.Welcome))

	chat, err := h.deps.Chats.Get(ctx, b, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to get chat", "error", err, "chat_id", chatID)
		reply(ctx, b, log, chatID, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}
	if err := chat.Widget.Open(ctx); err != nil {
		log.WarnContext(ctx, "Failed to open widget", "error", err, "chat_id", chatID)
	}
}

func withBotName(deps HandlerDeps, text string) string {
	if info := deps.Config.Telegram.BotInfo; info != nil && info.Username != "" {
		return strings.ReplaceAll(text, "@botname", "@"+info.Username)
	}
	return text
}

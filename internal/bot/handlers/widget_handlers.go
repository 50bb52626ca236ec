package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/longopass/internal/telegram"
	"github.com/edgard/longopass/internal/widget"
)

// chatHandler resolves the chat of an update before delegating to fn.
type chatHandler struct {
	deps HandlerDeps
	name string
	fn   func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, msg *models.Message)
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil {
		log.WarnContext(ctx, "Handler received update without message", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	chat, err := h.deps.Chats.Get(ctx, b, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to get chat", "error", err, "chat_id", chatID)
		reply(ctx, b, log, chatID, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}

	h.fn(ctx, b, log.With("chat_id", chatID), chat, update.Message)
}

// NewOpenHandler returns a handler for the /open command.
func NewOpenHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "open", fn: func(ctx context.Context, _ *bot.Bot, log *slog.Logger, chat *Chat, _ *models.Message) {
		if err := chat.Widget.Open(ctx); err != nil {
			log.WarnContext(ctx, "Failed to open widget", "error", err)
		}
	}}.Handle
}

// NewCloseHandler returns a handler for the /close command.
func NewCloseHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "close", fn: func(ctx context.Context, _ *bot.Bot, _ *slog.Logger, chat *Chat, _ *models.Message) {
		chat.Widget.Close(ctx)
	}}.Handle
}

// NewMessageHandler returns the default handler: any text that is not a
// command goes to the chat conversation.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "message", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, msg *models.Message) {
		if msg.Text == "" {
			return
		}
		if strings.HasPrefix(msg.Text, "/") {
			reply(ctx, b, log, chat.ID, withBotName(deps, deps.Config.Messages.Help))
			return
		}
		stop := telegram.KeepTyping(ctx, b, chat.ID, telegram.DefaultTypingInterval, log)
		err := chat.Widget.Send(ctx, msg.Text)
		stop()
		if err != nil {
			log.DebugContext(ctx, "Chat message not answered", "error", err)
		}
	}}.Handle
}

// NewQuizHandler returns a handler for /quiz <json>.
func NewQuizHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "quiz", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, msg *models.Message) {
		detail, ok := jsonArgs(msg.Text)
		if !ok {
			reply(ctx, b, log, chat.ID, deps.Config.Messages.InvalidJSONMsg)
			return
		}
		if err := chat.Widget.Dispatch(ctx, widget.EventQuiz, detail); err != nil {
			log.WarnContext(ctx, "Quiz analysis failed", "error", err)
		}
	}}.Handle
}

// NewLabHandler returns a handler for /lab <json>.
func NewLabHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "lab", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, msg *models.Message) {
		detail, ok := jsonArgs(msg.Text)
		if !ok {
			reply(ctx, b, log, chat.ID, deps.Config.Messages.InvalidJSONMsg)
			return
		}
		if err := chat.Widget.Dispatch(ctx, widget.EventLab, detail); err != nil {
			log.WarnContext(ctx, "Lab analysis failed", "error", err)
		}
	}}.Handle
}

// jsonArgs extracts the JSON argument of a command. A missing argument is
// valid and yields nil.
func jsonArgs(text string) (json.RawMessage, bool) {
	args := commandArgs(text)
	if args == "" {
		return nil, true
	}
	if !json.Valid([]byte(args)) {
		return nil, false
	}
	return json.RawMessage(args), true
}

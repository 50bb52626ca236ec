package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/longopass/internal/client"
)

// NewHistoryHandler returns a handler for the /history command.
func NewHistoryHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "history", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, _ *models.Message) {
		history, err := chat.Client.GetChatHistory(ctx, 0)
		switch {
		case errors.Is(err, client.ErrNoConversation):
			reply(ctx, b, log, chat.ID, deps.Config.Messages.HistoryEmptyMsg)
			return
		case errors.Is(err, client.ErrPremiumRequired):
			reply(ctx, b, log, chat.ID, deps.Config.Messages.PremiumOnly)
			return
		case err != nil:
			log.ErrorContext(ctx, "Failed to fetch history", "error", err)
			reply(ctx, b, log, chat.ID, deps.Config.Messages.ErrorGeneralMsg)
			return
		}

		if len(history) == 0 {
			reply(ctx, b, log, chat.ID, deps.Config.Messages.HistoryEmptyMsg)
			return
		}
		reply(ctx, b, log, chat.ID, FormatHistory(history))
	}}.Handle
}

// FormatHistory renders a conversation one message per line.
func FormatHistory(history []client.HistoryMessage) string {
	var sb strings.Builder
	for i, m := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		who := "🤖"
		if m.Role == "user" {
			who = "👤"
		}
		fmt.Fprintf(&sb, "%s %s", who, m.Content)
	}
	return sb.String()
}

package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/edgard/longopass/internal/telegram"
)

func reply(ctx context.Context, s telegram.Sender, log *slog.Logger, chatID int64, text string) {
	if _, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// commandArgs returns the text after the command word, e.g. the JSON in
// "/quiz {...}". Commands addressed as /quiz@botname are handled too.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	i := strings.IndexAny(text, " \n\t")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i+1:])
}

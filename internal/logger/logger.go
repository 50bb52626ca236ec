// Package logger builds the application slog logger and the Telegram
// update logging middleware.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a logger writing to w without touching the default logger.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Middleware logs every incoming Telegram update and how long it took to
// handle. Message text is truncated since it may carry lab values.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With(
				"update_id", update.ID,
				"start_time", startTime.Format(time.RFC3339),
			)

			var updateType string
			var chatID int64
			var userID int64
			var text string

			if update.Message != nil {
				updateType = "message"
				chatID = update.Message.Chat.ID
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
				text = update.Message.Text
				logEntry = logEntry.With(
					"message_id", update.Message.ID,
					"chat_id", chatID,
					"user_id", userID,
					"text_preview", TruncateString(text, 50),
				)
			} else if update.CallbackQuery != nil {
				updateType = "callback_query"
				userID = update.CallbackQuery.From.ID
				text = update.CallbackQuery.Data
				logEntry = logEntry.With(
					"callback_query_id", update.CallbackQuery.ID,
					"user_id", userID,
					"data", text,
				)

				if update.CallbackQuery.Message.Message != nil {
					chatID = update.CallbackQuery.Message.Message.Chat.ID
					logEntry = logEntry.With("chat_id", chatID, "message_accessible", true)
				} else if update.CallbackQuery.Message.InaccessibleMessage != nil {
					chatID = update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
					logEntry = logEntry.With("chat_id", chatID, "message_accessible", false)
				}
			} else {
				updateType = "other"
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			duration := time.Since(startTime)
			logEntry.InfoContext(ctx, "Finished processing update", "duration", duration)
		}
	}
}

// TruncateString shortens s to at most maxLen runes, marking the cut with
// "...".
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}

package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// DefaultTypingInterval is how often the typing indicator is refreshed.
// Telegram clears it after about five seconds.
const DefaultTypingInterval = 4 * time.Second

// KeepTyping shows the typing indicator in chatID until the returned stop
// function is called or ctx is done. The service may take several seconds to
// answer a chat message.
func KeepTyping(ctx context.Context, s Sender, chatID int64, interval time.Duration, logger *slog.Logger) (stop func()) {
	if interval <= 0 {
		interval = DefaultTypingInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			_, err := s.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID: chatID,
				Action: models.ChatActionTyping,
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.DebugContext(ctx, "Typing action failed", "error", err, "chat_id", chatID)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

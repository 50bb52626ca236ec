// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// AdminOnly creates a middleware that checks if the message sender is the configured admin user.
// If not, it sends a "Not Authorized" message and stops processing by returning early.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil {
				next(ctx, bot, update)
				return
			}
			if update.Message.From == nil {
				deps.Logger.WarnContext(ctx, "Admin command without sender ignored", "chat_id", update.Message.Chat.ID)
				return
			}

			userID := update.Message.From.ID
			adminID := deps.Config.Telegram.AdminUserID

			if adminID == 0 || userID != adminID {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
				reply(ctx, bot, log, chatID, deps.Config.Messages.ErrorUnauthorizedMsg)
				return
			}

			next(ctx, bot, update)
		}
	}
}

// ChatLimiter hands out one token bucket per chat.
type ChatLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// NewChatLimiter allows perSecond updates per chat with the given burst.
// perSecond <= 0 disables limiting.
func NewChatLimiter(perSecond float64, burst int) *ChatLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ChatLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// Allow reports whether chatID may be served now.
func (l *ChatLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	lim, ok := l.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[chatID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit drops message updates from chats that exceed their budget,
// telling the chat to slow down.
func RateLimit(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if deps.Limiter == nil || update.Message == nil {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !deps.Limiter.Allow(chatID) {
				log := deps.Logger.With("middleware", "RateLimit")
				log.WarnContext(ctx, "Rate limit exceeded", "chat_id", chatID)
				if deps.Metrics != nil {
					deps.Metrics.IncRateLimited()
				}
				reply(ctx, bot, log, chatID, deps.Config.Messages.RateLimitedMsg)
				return
			}

			next(ctx, bot, update)
		}
	}
}

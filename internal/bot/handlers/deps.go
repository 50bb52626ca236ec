package handlers

import (
	"log/slog"

	"github.com/edgard/longopass/internal/config"
	"github.com/edgard/longopass/internal/metrics"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Chats   *Chats
	Limiter *ChatLimiter
	// Metrics may be nil when metrics are disabled.
	Metrics *metrics.Metrics
}

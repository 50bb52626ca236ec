package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewHealthHandler returns a handler for the /health command.
func NewHealthHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "health", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, _ *models.Message) {
		status, err := chat.Client.HealthCheck(ctx)
		up := err == nil
		if deps.Metrics != nil {
			deps.Metrics.SetServiceUp(up)
		}
		if !up {
			log.WarnContext(ctx, "Service health check failed", "error", err)
			reply(ctx, b, log, chat.ID, deps.Config.Messages.HealthDownMsg)
			return
		}
		log.InfoContext(ctx, "Service health checked", "status", status.Status, "service", status.Service)
		reply(ctx, b, log, chat.ID, deps.Config.Messages.HealthOKMsg)
	}}.Handle
}

package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewPlanHandler returns a handler for /plan <free|premium>, which switches
// the chat's plan.
func NewPlanHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "plan", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, msg *models.Message) {
		arg := commandArgs(msg.Text)
		if arg == "" {
			reply(ctx, b, log, chat.ID, deps.Config.Messages.UsagePlanMsg)
			return
		}
		if err := chat.Widget.SetPlan(ctx, arg); err != nil {
			log.InfoContext(ctx, "Rejected plan change", "plan", arg, "error", err)
			reply(ctx, b, log, chat.ID, deps.Config.Messages.UsagePlanMsg)
			return
		}
		log.InfoContext(ctx, "Plan changed", "plan", chat.Widget.Session().Plan, "admin_user_id", msg.From.ID)
		reply(ctx, b, log, chat.ID, deps.Config.Messages.PlanUpdatedMsg)
	}}.Handle
}

// NewUserIDHandler returns a handler for /userid <id>, which switches the
// service user of the chat and drops its conversation.
func NewUserIDHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps: deps, name: "user_id", fn: func(ctx context.Context, b *bot.Bot, log *slog.Logger, chat *Chat, msg *models.Message) {
		arg := commandArgs(msg.Text)
		if arg == "" {
			reply(ctx, b, log, chat.ID, deps.Config.Messages.UsageUserIDMsg)
			return
		}
		chat.Widget.SetUserID(ctx, arg)
		log.InfoContext(ctx, "User id changed", "user_id", arg, "admin_user_id", msg.From.ID)
		reply(ctx, b, log, chat.ID, deps.Config.Messages.UserIDUpdatedMsg)
	}}.Handle
}

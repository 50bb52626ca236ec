// Package telegram wires the go-telegram/bot client: bot construction,
// handler registration, and the Telegram side of the chat widget.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender is the part of *bot.Bot used to talk back to a chat.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// RegisteredHandler represents a command handler with its description and middleware.
type RegisteredHandler struct {
	HandlerType bot.HandlerType
	Pattern     string
	Handler     bot.HandlerFunc
	Middleware  []bot.Middleware
	MatchType   bot.MatchType
}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	log.Info("Telegram bot instance created successfully", "token_prefix", prefix+"...")
	return b, nil
}

// ApplyMiddleware wraps a handler function with a slice of middleware.
// The first middleware in the slice is the outermost.
func ApplyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers command handlers with the bot, wrapping each in
// its middleware.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registeredHandlers map[string]RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	log.Info("Registering Telegram handlers...", "count", len(registeredHandlers))

	for name, regHandler := range registeredHandlers {
		if regHandler.Handler == nil {
			log.Warn("Skipping registration for nil handler", "command", name)
			continue
		}

		finalHandler := ApplyMiddleware(regHandler.Handler, regHandler.Middleware)
		b.RegisterHandler(regHandler.HandlerType, regHandler.Pattern, regHandler.MatchType, finalHandler)
		log.Debug("Registered handler", "command", name, "match_type", regHandler.MatchType, "middleware_count", len(regHandler.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(registeredHandlers))
	return nil
}

// SetCommands publishes the command menu shown by Telegram clients.
func SetCommands(ctx context.Context, b *bot.Bot, commands []models.BotCommand) error {
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/longopass/internal/bot"
	"github.com/edgard/longopass/internal/bot/handlers"
	"github.com/edgard/longopass/internal/bot/tasks"
	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/logger"
	"github.com/edgard/longopass/internal/metrics"
	"github.com/edgard/longopass/internal/recommend"
	"github.com/edgard/longopass/internal/telegram"
)

func newBotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBot(cmd.Context())
		},
	}
}

// runBot initializes all bot components (catalog, sessions, metrics,
// telegram, scheduler) and blocks until ctx is cancelled.
func (a *app) runBot(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	a.log = log
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	cat, store, closeCatalog, err := a.openCatalog()
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer closeCatalog()

	sessStore, closeSessions, err := a.openSessions(ctx, cfg.Telegram.SessionStore == "redis")
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer closeSessions()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var clientOpts []client.Option
	if opt := a.breakerOption(m); opt != nil {
		clientOpts = append(clientOpts, opt)
	}

	hDeps := handlers.HandlerDeps{
		Logger:  log,
		Config:  cfg,
		Chats:   handlers.NewChats(cfg, sessStore, recommend.NewEngine(cat, log), m, log, clientOpts...),
		Limiter: handlers.NewChatLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		Metrics: m,
	}

	probe, err := a.newClient(m)
	if err != nil {
		return fmt.Errorf("failed to create health probe client: %w", err)
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Config: cfg,
		Health: probe,
	}
	if store != nil {
		tDeps.Store = store
	}
	if m != nil {
		tDeps.Gauge = m
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.DefaultHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		return err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		return fmt.Errorf("failed to register Telegram handlers: %w", err)
	}
	if err := telegram.SetCommands(ctx, tg, handlers.Commands()); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		return err
	}
	app := bot.NewBot(log, cfg, tg, sched, m)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("bot stopped due to error: %w", runErr)
	}

	log.Info("Bot stopped gracefully.")
	return nil
}

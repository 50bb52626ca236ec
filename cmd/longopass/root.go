package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"github.com/edgard/longopass/internal/catalog"
	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/config"
	"github.com/edgard/longopass/internal/database"
	"github.com/edgard/longopass/internal/logger"
	"github.com/edgard/longopass/internal/metrics"
	"github.com/edgard/longopass/internal/resilience"
	"github.com/edgard/longopass/internal/sessions"
)

// app carries what every subcommand needs once the configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
	in         io.Reader
	out        io.Writer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:           "longopass",
		Short:         "Longopass AI client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration from %s: %w", a.configPath, err)
			}
			a.cfg = cfg
			a.log = logger.New(os.Stderr, cfg.Logger.Level, cfg.Logger.JSON)
			slog.SetDefault(a.log)
			a.log.Debug("Configuration loaded", "path", a.configPath, "command", cmd.Name())
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./config.yaml", "Path to configuration file")

	root.AddCommand(
		newBotCmd(a),
		newChatCmd(a),
		newQuizCmd(a),
		newLabCmd(a),
		newHistoryCmd(a),
		newHealthCmd(a),
		newRecommendCmd(a),
		newCatalogCmd(a),
	)
	return root
}

// newClient builds a service client from the api section.
func (a *app) newClient(m *metrics.Metrics, opts ...client.Option) (*client.Client, error) {
	opts = append(opts, client.WithLogger(a.log))
	if m != nil {
		opts = append(opts, client.WithObserver(m))
	}
	plan, err := client.ParsePlan(a.cfg.API.Plan)
	if err != nil {
		return nil, err
	}
	return client.New(client.Config{
		BaseURL:       a.cfg.API.BaseURL,
		UserPlan:      plan,
		UserID:        a.cfg.API.UserID,
		Timeout:       a.cfg.API.Timeout,
		AutoStartChat: a.cfg.API.AutoStartChat,
	}, opts...)
}

// breakerOption returns a client option sharing one circuit breaker, or
// nil when the breaker is disabled.
func (a *app) breakerOption(m *metrics.Metrics) client.Option {
	cb := a.cfg.API.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "longopass-ai",
		MaxFailures: cb.MaxFailures,
		OpenTimeout: cb.OpenTimeout,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if m != nil {
				m.SetCircuitOpen(to != gobreaker.StateClosed)
			}
		},
	}, a.log)
	return client.WithGuard(breaker)
}

// openStore opens the catalog database. The returned close function must be
// called when done.
func (a *app) openStore() (database.Store, func(), error) {
	db, err := database.NewDB(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return database.NewStore(db, a.log), func() { database.CloseDB(db) }, nil
}

// openCatalog returns the configured product catalog.
func (a *app) openCatalog() (catalog.Catalog, database.Store, func(), error) {
	if a.cfg.Catalog.Source != "sql" {
		return catalog.Default(), nil, func() {}, nil
	}
	store, closeFn, err := a.openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	return catalog.NewSQL(store), store, closeFn, nil
}

// openSessions returns the redis session store when enabled, else an
// in-memory one.
func (a *app) openSessions(ctx context.Context, useRedis bool) (sessions.Store, func(), error) {
	if !useRedis {
		return sessions.NewMemory(), func() {}, nil
	}
	r := a.cfg.Redis
	store, err := sessions.NewRedis(ctx, sessions.RedisConfig{
		Addr:        r.Addr,
		Username:    r.Username,
		Password:    r.Password,
		DB:          r.DB,
		KeyPrefix:   r.KeyPrefix,
		TTL:         r.TTL,
		DialTimeout: r.DialTimeout,
		Timeout:     r.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			a.log.Error("Error closing redis session store", "error", err)
		}
	}, nil
}

// readInput reads a file argument, or stdin when it is absent or "-".
func (a *app) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(args[0])
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

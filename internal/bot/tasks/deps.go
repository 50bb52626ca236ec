// Package tasks implements the scheduled jobs of the bot: service health
// probing and catalog database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/config"
)

// HealthChecker probes the Longopass AI service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*client.HealthStatus, error)
}

// Maintainer runs database maintenance.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// ServiceGauge records whether the service is reachable.
type ServiceGauge interface {
	SetServiceUp(up bool)
}

// TaskDeps contains all dependencies required by scheduled tasks.
// Store and Gauge may be nil; tasks needing them are then not registered
// or skip recording.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Health HealthChecker
	Store  Maintainer
	Gauge  ServiceGauge
}

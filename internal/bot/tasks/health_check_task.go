package tasks

import (
	"context"
	"fmt"
	"time"
)

const healthCheckTimeout = 20 * time.Second

// newHealthCheckTask probes the AI service and records the result on the
// service-up gauge.
func newHealthCheckTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "health_check")

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		status, err := deps.Health.HealthCheck(ctx)
		if deps.Gauge != nil {
			deps.Gauge.SetServiceUp(err == nil)
		}
		if err != nil {
			log.WarnContext(ctx, "AI service is unreachable", "error", err)
			return fmt.Errorf("health check failed: %w", err)
		}

		log.DebugContext(ctx, "AI service is up", "status", status.Status, "service", status.Service)
		return nil
	}
}

package tasks

import (
	"context"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns a map of all registered scheduled tasks.
// The keys match the task names under scheduler.tasks in the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Health != nil {
		tasks["health_check"] = newHealthCheckTask(deps)
	}
	if deps.Store != nil {
		tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

package health

import "context"

// DBPinger checks key-value store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PlannerChecker checks planner provider availability.
type PlannerChecker interface {
	HealthCheck(ctx context.Context) error
}

// ModelState reports whether a model is loaded.
type ModelState interface {
	Loaded() bool
}

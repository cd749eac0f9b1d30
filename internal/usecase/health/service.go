// Package health aggregates component checks for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty marks a component that works but holds nothing yet.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	planner PlannerChecker
	model   ModelState
}

// New creates a Service. Any dependency can be nil and is then not checked.
func New(db DBPinger, planner PlannerChecker, model ModelState) *Service {
	return &Service{db: db, planner: planner, model: model}
}

// Check runs health checks against all configured components. A missing
// model is reported but does not degrade the service.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		checks["database"] = result(s.db.Ping(ctx))
	}
	if s.planner != nil {
		checks["planner"] = result(s.planner.HealthCheck(ctx))
	}
	if s.model != nil {
		if s.model.Loaded() {
			checks["model"] = CheckOK
		} else {
			checks["model"] = CheckEmpty
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

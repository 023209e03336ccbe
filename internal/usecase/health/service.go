package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/logger"
)

// DefaultTimeout bounds a single health ping.
const DefaultTimeout = 2 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates the backing store answers.
	Healthy Status = "ok"
	// Degraded indicates the backing store does not answer. Search still
	// responds, but only with degraded empty pages and fallback facets.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK      CheckResult = "ok"
	CheckError   CheckResult = "error"
	CheckTimeout CheckResult = "timeout"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service pings the backing store.
type Service struct {
	db      DBPinger
	timeout time.Duration
}

// New creates a Service. timeout <= 0 means DefaultTimeout.
func New(db DBPinger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{db: db, timeout: timeout}
}

// Check pings the backing store within the check timeout.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := map[string]CheckResult{"database": CheckOK}
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		if ctx.Err() != nil {
			checks["database"] = CheckTimeout
		}
		logger.FromContext(ctx).Warn("health check failed",
			zap.String("check", "database"),
			zap.Error(err),
		)
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

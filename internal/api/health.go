package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Status is the overall health of the service.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// CheckFunc pings one dependency.
type CheckFunc func(ctx context.Context) error

// Counter reports a queue length.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport is the detailed health response.
type HealthReport struct {
	Status                Status            `json:"status"`
	Components            []ComponentHealth `json:"components"`
	ReconciliationPending int               `json:"reconciliation_pending"`
}

// HealthChecker runs dependency checks. A failed required check is critical;
// a failed optional check or a non-empty reconciliation queue is degraded.
type HealthChecker struct {
	required map[string]CheckFunc
	optional map[string]CheckFunc
	pending  Counter
	timeout  time.Duration
}

// NewHealthChecker creates a checker over the reconciliation queue.
func NewHealthChecker(pending Counter) *HealthChecker {
	return &HealthChecker{
		required: make(map[string]CheckFunc),
		optional: make(map[string]CheckFunc),
		pending:  pending,
		timeout:  2 * time.Second,
	}
}

// Require adds a check whose failure makes the service critical.
func (h *HealthChecker) Require(name string, fn CheckFunc) *HealthChecker {
	h.required[name] = fn
	return h
}

// Optional adds a check whose failure only degrades the service.
func (h *HealthChecker) Optional(name string, fn CheckFunc) *HealthChecker {
	h.optional[name] = fn
	return h
}

// Check runs every check and aggregates the result (worst case wins).
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	report := HealthReport{Status: StatusHealthy}
	run := func(checks map[string]CheckFunc, failed Status) {
		for name, fn := range checks {
			c := ComponentHealth{Name: name, Status: StatusHealthy}
			if err := fn(ctx); err != nil {
				c.Status = failed
				c.Error = err.Error()
				report.Status = worse(report.Status, failed)
			}
			report.Components = append(report.Components, c)
		}
	}
	run(h.required, StatusCritical)
	run(h.optional, StatusDegraded)

	sort.Slice(report.Components, func(i, j int) bool {
		return report.Components[i].Name < report.Components[j].Name
	})

	if h.pending != nil {
		n, err := h.pending.Count(ctx)
		switch {
		case err != nil:
			report.Components = append(report.Components, ComponentHealth{
				Name: "reconciliation", Status: StatusDegraded, Error: err.Error(),
			})
			report.Status = worse(report.Status, StatusDegraded)
		case n > 0:
			report.ReconciliationPending = n
			report.Status = worse(report.Status, StatusDegraded)
		}
	}
	return report
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := StatusHealthy
	if s.deps.Health != nil {
		status = s.deps.Health.Check(r.Context()).Status
	}

	code := http.StatusOK
	if status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(status)})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{Status: StatusHealthy}
	if s.deps.Health != nil {
		report = s.deps.Health.Check(r.Context())
	}
	writeJSON(w, http.StatusOK, report)
}

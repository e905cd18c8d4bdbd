package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/PagerNation/escalator/internal/observability"
)

const dependencyProbeTimeout = 2 * time.Second

// DependencyPinger checks one backing dependency.
type DependencyPinger interface {
	Ping(ctx context.Context) error
}

// SchedulerStats exposes the armed-timer gauge.
type SchedulerStats interface {
	Pending() int
}

// HealthHandler responds to liveness/readiness probes and serves the
// in-memory counters. Readiness reports the armed-timer count alongside the
// dependency checks: a healthy escalator with zero timers after bulk load
// usually means recovery found nothing to arm, which is worth seeing.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    DependencyPinger
	redis       DependencyPinger
	sched       SchedulerStats
	metrics     *observability.Metrics
}

// HealthDependencies bundles collaborators for the health handler.
type HealthDependencies struct {
	ServiceName string
	Version     string
	Postgres    DependencyPinger
	Redis       DependencyPinger
	Scheduler   SchedulerStats
	Metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		serviceName: deps.ServiceName,
		version:     deps.Version,
		postgres:    deps.Postgres,
		redis:       deps.Redis,
		sched:       deps.Scheduler,
		metrics:     deps.Metrics,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking backing dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), dependencyProbeTimeout)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range map[string]DependencyPinger{
		"postgres": h.postgres,
		"redis":    h.redis,
	} {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
		} else {
			depStatus[name] = "ok"
		}
	}

	body := fiber.Map{
		"dependencies": depStatus,
		"timers_armed": h.sched.Pending(),
	}

	if ready {
		body["status"] = "ready"
		return c.JSON(body)
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": body,
		},
	})
}

// Metrics serves a snapshot of the request and error counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

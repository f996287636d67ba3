package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/telemetry"
)

// Pinger performs the single outbound call of the sequence
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecks runs the plan strictly in order, once per process
type HealthChecks struct {
	plan    Plan
	pinger  Pinger
	logger  logger.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// NewHealthChecks creates the check sequence
func NewHealthChecks(
	plan Plan,
	pinger Pinger,
	log logger.Logger,
	metrics *telemetry.Metrics,
	tracer trace.Tracer,
) *HealthChecks {
	return &HealthChecks{
		plan:    plan,
		pinger:  pinger,
		logger:  log,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Run executes every check. The only error it returns wraps
// domain.ErrCancelled; the outcome counts the checks that finished.
func (h *HealthChecks) Run(ctx context.Context) (domain.HealthOutcome, error) {
	var outcome domain.HealthOutcome
	start := time.Now()

	h.logger.Info("starting health checks",
		logger.Int("checks", len(h.plan)),
		logger.Duration("expected", h.plan.Total()))

	for _, check := range h.plan {
		if err := h.runCheck(ctx, check, &outcome); err != nil {
			h.logger.Warn("health checks stopped",
				logger.String("check", check.Name),
				logger.Int("checks_completed", outcome.ChecksCompleted),
				logger.Error(err))
			return outcome, err
		}
	}

	h.logger.Info("health checks completed",
		logger.Int("checks_completed", outcome.ChecksCompleted),
		logger.Int("external_calls_made", outcome.ExternalCallsMade),
		logger.Duration("elapsed", time.Since(start)))

	return outcome, nil
}

func (h *HealthChecks) runCheck(ctx context.Context, check Check, outcome *domain.HealthOutcome) error {
	ctx, span := h.tracer.Start(ctx, "health_check/"+check.Name,
		trace.WithAttributes(attribute.Int("steps", len(check.Steps))))
	defer span.End()

	start := time.Now()
	h.logger.Debug("health check started", logger.String("check", check.Name))

	for _, step := range check.Steps {
		var err error
		if step.Ping {
			err = h.ping(ctx, check.Name, outcome)
		} else {
			err = Sleep(ctx, step.Delay)
		}
		if err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return fmt.Errorf("%s: %w", check.Name, err)
		}

		h.logger.Debug("health check step",
			logger.String("check", check.Name),
			logger.String("step", step.Name),
			logger.Duration("delay", step.Delay))
	}

	elapsed := time.Since(start)
	outcome.ChecksCompleted++
	h.metrics.RecordHealthCheck(ctx, check.Name, elapsed)

	h.logger.Info("health check passed",
		logger.String("check", check.Name),
		logger.Duration("elapsed", elapsed))
	return nil
}

// ping never fails the check unless ctx was cancelled
func (h *HealthChecks) ping(ctx context.Context, check string, outcome *domain.HealthOutcome) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	outcome.ExternalCallsMade++
	err := h.pinger.Ping(ctx)
	if errors.Is(err, domain.ErrCancelled) || (err != nil && ctx.Err() != nil) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	h.metrics.RecordExternalCall(ctx, err == nil)
	if err != nil {
		h.logger.Warn("external service ping failed, continuing",
			logger.String("check", check),
			logger.Error(err))
		return nil
	}

	h.logger.Info("external service reachable", logger.String("check", check))
	return nil
}

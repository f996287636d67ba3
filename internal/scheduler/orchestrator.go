package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/telemetry"
)

// HealthRunner runs the startup checks
type HealthRunner interface {
	Run(ctx context.Context) (domain.HealthOutcome, error)
}

// SyncRunner runs the catalog ingestion
type SyncRunner interface {
	Run(ctx context.Context) (domain.SyncResult, error)
}

// Snapshot is a copy of the orchestration progress
type Snapshot struct {
	RunID      string                    `json:"run_id,omitempty"`
	State      domain.OrchestrationState `json:"-"`
	Health     domain.HealthOutcome      `json:"health"`
	Sync       *domain.SyncResult        `json:"sync,omitempty"`
	LastError  string                    `json:"last_error,omitempty"`
	StartedAt  *time.Time                `json:"started_at,omitempty"`
	FinishedAt *time.Time                `json:"finished_at,omitempty"`
}

// Orchestrator runs the health checks then the sync engine, once.
// Failures never leave Run: they are logged and recorded in the snapshot.
type Orchestrator struct {
	checks  HealthRunner
	sync    SyncRunner
	logger  logger.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	mu   sync.RWMutex
	snap Snapshot
}

// NewOrchestrator creates an orchestrator in the NotStarted state
func NewOrchestrator(
	checks HealthRunner,
	syncer SyncRunner,
	log logger.Logger,
	metrics *telemetry.Metrics,
	tracer trace.Tracer,
) *Orchestrator {
	return &Orchestrator{
		checks:  checks,
		sync:    syncer,
		logger:  log,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Snapshot returns the current progress
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := o.snap
	if s.Sync != nil {
		res := *s.Sync
		s.Sync = &res
	}
	return s
}

// State returns the current state
func (o *Orchestrator) State() domain.OrchestrationState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snap.State
}

// Run executes checks then sync. It only returns once a terminal state is reached.
func (o *Orchestrator) Run(ctx context.Context) {
	runID := uuid.NewString()
	log := o.logger.With(logger.String("orchestration_id", runID))

	ctx, span := o.tracer.Start(ctx, "orchestration", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("orchestration panicked: %v", r)
			span.SetStatus(codes.Error, err.Error())
			log.Error("startup orchestration crashed",
				logger.String("state", o.State().String()),
				logger.String("stack", string(debug.Stack())),
				logger.Error(err))
			o.finish(ctx, domain.StateFailed, err)
		}
	}()

	o.begin(ctx, runID)
	log.Info("startup orchestration started")

	outcome, err := o.checks.Run(ctx)
	o.update(func(s *Snapshot) { s.Health = outcome })
	if err != nil {
		o.stop(ctx, log, span, err)
		return
	}

	o.transition(ctx, domain.StateRunningSync)
	result, err := o.sync.Run(ctx)
	o.update(func(s *Snapshot) { s.Sync = &result })
	if err != nil {
		o.stop(ctx, log, span, err)
		return
	}
	if result.StopReason == domain.StopCancelled {
		o.stop(ctx, log, span, fmt.Errorf("%w: sync interrupted", domain.ErrCancelled))
		return
	}

	o.finish(ctx, domain.StateCompleted, nil)
	log.Info("startup orchestration completed",
		logger.Int("checks_completed", outcome.ChecksCompleted),
		logger.Int("external_calls_made", outcome.ExternalCallsMade),
		logger.Int64("products", result.TotalProductsSynced),
		logger.String("sync_stop_reason", string(result.StopReason)))
}

// stop records a terminal failure; cancellation is logged as a clean stop
func (o *Orchestrator) stop(ctx context.Context, log logger.Logger, span trace.Span, err error) {
	snap := o.Snapshot()
	if errors.Is(err, domain.ErrCancelled) {
		log.Info("startup orchestration stopped by shutdown",
			logger.String("state", snap.State.String()),
			logger.Int("checks_completed", snap.Health.ChecksCompleted))
	} else {
		span.SetStatus(codes.Error, err.Error())
		log.Error("startup orchestration failed",
			logger.String("state", snap.State.String()),
			logger.Int("checks_completed", snap.Health.ChecksCompleted),
			logger.Error(err))
	}
	o.finish(ctx, domain.StateFailed, err)
}

func (o *Orchestrator) begin(ctx context.Context, runID string) {
	now := time.Now().UTC()
	o.update(func(s *Snapshot) {
		s.RunID = runID
		s.StartedAt = &now
	})
	o.transition(ctx, domain.StateRunningChecks)
}

func (o *Orchestrator) finish(ctx context.Context, state domain.OrchestrationState, err error) {
	now := time.Now().UTC()
	o.update(func(s *Snapshot) {
		s.FinishedAt = &now
		if err != nil {
			s.LastError = err.Error()
		}
	})
	o.transition(ctx, state)
}

func (o *Orchestrator) transition(ctx context.Context, state domain.OrchestrationState) {
	o.update(func(s *Snapshot) { s.State = state })
	o.metrics.RecordState(ctx, state)
}

func (o *Orchestrator) update(fn func(*Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.snap)
}

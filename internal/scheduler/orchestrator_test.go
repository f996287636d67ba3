package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/store/memory"
)

func TestOrchestratorCompletes(t *testing.T) {
	src := newFakeCatalog(3)
	st := memory.New()
	checks := NewHealthChecks(instantPlan(), &fakePinger{}, logger.Nop(), nil, testTracer())
	engine := NewSyncEngine(src, st, SyncOptions{TargetCount: 30, PageSize: 10}, logger.Nop(), nil, testTracer())
	o := NewOrchestrator(checks, engine, logger.Nop(), nil, testTracer())

	assert.Equal(t, domain.StateNotStarted, o.State())
	o.Run(context.Background())

	snap := o.Snapshot()
	assert.Equal(t, domain.StateCompleted, snap.State)
	assert.Equal(t, 6, snap.Health.ChecksCompleted)
	require.NotNil(t, snap.Sync)
	assert.EqualValues(t, 30, snap.Sync.TotalProductsSynced)
	assert.NotEmpty(t, snap.RunID)
	require.NotNil(t, snap.StartedAt)
	require.NotNil(t, snap.FinishedAt)
	assert.Empty(t, snap.LastError)
}

func TestOrchestratorCancelledDuringFourthCheck(t *testing.T) {
	plan := instantPlan()
	plan[3].Steps[1].Delay = 10 * time.Second

	log, logs := logger.NewObserved("info")
	syncer := &fakeSync{}
	o := NewOrchestrator(NewHealthChecks(plan, &fakePinger{}, log, nil, testTracer()), syncer, log, nil, testTracer())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	o.Run(ctx)

	snap := o.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Equal(t, 3, snap.Health.ChecksCompleted)
	assert.Zero(t, syncer.calls.Load(), "sync must never run after cancelled checks")
	assert.Nil(t, snap.Sync)
	assert.Equal(t, 1, logs.FilterMessage("startup orchestration stopped by shutdown").Len())
	assert.Zero(t, logs.FilterMessage("startup orchestration failed").Len())
}

func TestOrchestratorSyncFailureIsContained(t *testing.T) {
	log, logs := logger.NewObserved("info")
	syncer := &fakeSync{
		result: domain.SyncResult{TotalProductsSynced: 20, StopReason: domain.StopFailed},
		err:    errors.Join(domain.ErrSyncFailed, errors.New("unexpected EOF")),
	}
	o := NewOrchestrator(NewHealthChecks(instantPlan(), &fakePinger{}, log, nil, testTracer()), syncer, log, nil, testTracer())

	assert.NotPanics(t, func() { o.Run(context.Background()) })

	snap := o.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Contains(t, snap.LastError, "unexpected EOF")
	require.NotNil(t, snap.Sync)
	assert.EqualValues(t, 20, snap.Sync.TotalProductsSynced)
	assert.Equal(t, 1, logs.FilterMessage("startup orchestration failed").Len())
}

func TestOrchestratorRecoversPanics(t *testing.T) {
	log, logs := logger.NewObserved("info")
	syncer := &fakeSync{panic: "nil map write"}
	o := NewOrchestrator(NewHealthChecks(instantPlan(), &fakePinger{}, log, nil, testTracer()), syncer, log, nil, testTracer())

	assert.NotPanics(t, func() { o.Run(context.Background()) })

	snap := o.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Contains(t, snap.LastError, "nil map write")
	assert.Equal(t, 1, logs.FilterMessage("startup orchestration crashed").Len())
}

func TestOrchestratorSyncInterrupted(t *testing.T) {
	syncer := &fakeSync{result: domain.SyncResult{StopReason: domain.StopCancelled}}
	o := NewOrchestrator(NewHealthChecks(instantPlan(), &fakePinger{}, logger.Nop(), nil, testTracer()), syncer, logger.Nop(), nil, testTracer())

	o.Run(context.Background())

	assert.Equal(t, domain.StateFailed, o.State())
	assert.EqualValues(t, 1, syncer.calls.Load())
}

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
)

// blockingRunner runs until released or cancelled
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context) {
	r.runs.Add(1)
	close(r.started)
	select {
	case <-r.release:
	case <-ctx.Done():
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestCoordinatorModes(t *testing.T) {
	tests := []struct {
		mode           domain.Mode
		initial        domain.Readiness
		readyWhileBusy bool
	}{
		{domain.ModeGate, domain.ReadinessNotStarted, false},
		{domain.ModeCooperative, domain.ReadinessReady, true},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			runner := newBlockingRunner()
			c := NewCoordinator(tt.mode, runner, logger.Nop())
			assert.Equal(t, tt.initial, c.Readiness())

			c.Start(context.Background())
			waitFor(t, runner.started, "runner start")

			assert.Equal(t, tt.readyWhileBusy, c.IsReady())
			if !tt.readyWhileBusy {
				assert.Equal(t, domain.ReadinessInProgress, c.Readiness())
			}

			close(runner.release)
			waitFor(t, c.Done(), "orchestration end")
			assert.Equal(t, domain.ReadinessReady, c.Readiness())
			require.NoError(t, c.WaitReady(context.Background()))
		})
	}
}

func TestCoordinatorWaitReadyReleasedByShutdown(t *testing.T) {
	runner := newBlockingRunner()
	c := NewCoordinator(domain.ModeGate, runner, logger.Nop())

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	c.Start(runCtx)
	waitFor(t, runner.started, "runner start")

	hostCtx, shutdown := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, shutdown)

	err := c.WaitReady(hostCtx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.IsReady())
}

func TestCoordinatorGateReleasedAfterCancelledRun(t *testing.T) {
	runner := newBlockingRunner()
	c := NewCoordinator(domain.ModeGate, runner, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	waitFor(t, runner.started, "runner start")
	cancel()

	waitFor(t, c.Done(), "orchestration end")
	assert.True(t, c.IsReady())
}

func TestCoordinatorRunsOnce(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	c := NewCoordinator(domain.ModeCooperative, runner, logger.Nop())

	c.RunOrchestration(context.Background())
	c.RunOrchestration(context.Background())

	assert.EqualValues(t, 1, runner.runs.Load())
}

func TestCooperativeReadyBeforeOrchestrationRuns(t *testing.T) {
	c := NewCoordinator(domain.ModeCooperative, newBlockingRunner(), logger.Nop())

	assert.True(t, c.IsReady())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, c.WaitReady(ctx))
}

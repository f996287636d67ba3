package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
)

// Runner is the startup task driven by the coordinator
type Runner interface {
	Run(ctx context.Context)
}

// Coordinator ties the startup task to the host's readiness signal.
// In gate mode readiness waits for the task to return; in cooperative
// mode the host is ready from construction, whatever the task is doing.
type Coordinator struct {
	mode    domain.Mode
	runner  Runner
	logger  logger.Logger
	started atomic.Bool

	readiness atomic.Int32
	readyOnce sync.Once
	ready     chan struct{}
	done      chan struct{}
}

// NewCoordinator creates a coordinator. A gate coordinator starts NotStarted,
// a cooperative one starts Ready.
func NewCoordinator(mode domain.Mode, runner Runner, log logger.Logger) *Coordinator {
	c := &Coordinator{
		mode:   mode,
		runner: runner,
		logger: log,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	if mode == domain.ModeCooperative {
		c.markReady()
	}
	return c
}

// Mode returns the scheduling mode
func (c *Coordinator) Mode() domain.Mode {
	return c.mode
}

// Readiness returns the current readiness signal
func (c *Coordinator) Readiness() domain.Readiness {
	return domain.Readiness(c.readiness.Load())
}

// IsReady reports whether the host may accept requests
func (c *Coordinator) IsReady() bool {
	return c.Readiness() == domain.ReadinessReady
}

// Start runs the orchestration in the background and returns immediately
func (c *Coordinator) Start(ctx context.Context) {
	go c.RunOrchestration(ctx)
}

// RunOrchestration is the single host entry point. Only the first call runs the task.
func (c *Coordinator) RunOrchestration(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		c.logger.Warn("startup orchestration already started, ignoring")
		return
	}
	defer close(c.done)

	if c.mode == domain.ModeGate {
		c.readiness.Store(int32(domain.ReadinessInProgress))
	}
	c.logger.Info("startup task launched", logger.String("mode", c.mode.String()))

	c.runner.Run(ctx)

	// gate mode releases the host whatever the outcome
	c.markReady()
}

// WaitReady blocks until the host may accept requests or ctx is done
func (c *Coordinator) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the orchestration has returned
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) markReady() {
	c.readyOnce.Do(func() {
		c.readiness.Store(int32(domain.ReadinessReady))
		close(c.ready)
		c.logger.Info("host ready to accept requests", logger.String("mode", c.mode.String()))
	})
}

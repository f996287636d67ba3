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
)

func TestHealthChecksRunInOrder(t *testing.T) {
	log, logs := logger.NewObserved("debug")
	pinger := &fakePinger{}

	outcome, err := NewHealthChecks(instantPlan(), pinger, log, nil, testTracer()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.HealthOutcome{ChecksCompleted: 6, ExternalCallsMade: 1}, outcome)
	assert.EqualValues(t, 1, pinger.calls.Load())

	var order []string
	for _, entry := range logs.FilterMessage("health check passed").All() {
		order = append(order, entry.ContextMap()["check"].(string))
	}
	assert.Equal(t, []string{
		CheckDatabaseConnectivity,
		CheckConfigurationValidation,
		CheckExternalServicePing,
		CheckCacheWarmup,
		CheckSecurityValidation,
		CheckFinalReadiness,
	}, order)
}

func TestHealthChecksPingFailureIsNotFatal(t *testing.T) {
	log, logs := logger.NewObserved("debug")
	pinger := &fakePinger{err: domain.ErrExternalCallFailed}

	outcome, err := NewHealthChecks(instantPlan(), pinger, log, nil, testTracer()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, outcome.ChecksCompleted)
	assert.Equal(t, 1, outcome.ExternalCallsMade)
	assert.Equal(t, 1, logs.FilterMessage("external service ping failed, continuing").Len())
}

func TestHealthChecksCancelledDuringFourthCheck(t *testing.T) {
	plan := instantPlan()
	plan[3].Steps[0].Delay = 10 * time.Second // CacheWarmup

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	outcome, err := NewHealthChecks(plan, &fakePinger{}, logger.Nop(), nil, testTracer()).Run(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelled), "err = %v", err)
	assert.Equal(t, 3, outcome.ChecksCompleted)
	assert.Equal(t, 1, outcome.ExternalCallsMade)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHealthChecksCancelledDuringPing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pinger := &cancellingPinger{cancel: cancel}

	outcome, err := NewHealthChecks(instantPlan(), pinger, logger.Nop(), nil, testTracer()).Run(ctx)
	require.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, 2, outcome.ChecksCompleted)
	assert.Equal(t, 1, outcome.ExternalCallsMade)
}

// cancellingPinger simulates a shutdown arriving while the call is in flight
type cancellingPinger struct {
	cancel context.CancelFunc
}

func (p *cancellingPinger) Ping(ctx context.Context) error {
	p.cancel()
	<-ctx.Done()
	return errors.Join(domain.ErrExternalCallFailed, ctx.Err())
}

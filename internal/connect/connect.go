// Package connect retries the first connection to a backing store while
// the service boots.
package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/MrSnakeDoc/warmup/internal/logger"
)

// Policy bounds the connection attempts to one backend.
type Policy struct {
	Timeout        time.Duration // total budget for all attempts
	RetryInterval  time.Duration // first wait, doubled after each failure
	MaxWait        time.Duration // cap on the wait between attempts
	AttemptTimeout time.Duration // budget of a single attempt
	WarnThreshold  int           // failures logged at warn before escalating to error
}

// Validate reports every invalid field.
func (p Policy) Validate() error {
	var errs []error
	if p.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("connect timeout must be > 0, got %v", p.Timeout))
	}
	if p.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("retry interval must be > 0, got %v", p.RetryInterval))
	}
	if p.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("max wait must be > 0, got %v", p.MaxWait))
	}
	if p.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("attempt timeout must be > 0, got %v", p.AttemptTimeout))
	}
	if p.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("warn threshold must be >= 0, got %d", p.WarnThreshold))
	}
	return errors.Join(errs...)
}

// Permanent marks an error that retrying cannot fix.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Dial calls dial until it succeeds, returns a Permanent error, ctx ends or
// the policy's budget runs out. backend names the store in logs and errors.
func Dial[T any](
	ctx context.Context,
	backend string,
	p Policy,
	log logger.Logger,
	dial func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, fmt.Errorf("invalid %s connect policy: %w", backend, err)
	}

	log = log.With(logger.String("backend", backend))
	log.Info("connecting", logger.Duration("timeout", p.Timeout))

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	attempts := 0
	attempt := func() (T, error) {
		attempts++
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, p.AttemptTimeout)
		defer cancelAttempt()
		return dial(attemptCtx)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.RetryInterval
	eb.MaxInterval = p.MaxWait
	eb.Multiplier = 2
	eb.RandomizationFactor = 0

	v, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(eb),
		backoff.WithMaxElapsedTime(p.Timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			fields := []logger.Field{
				logger.Int("attempt", attempts),
				logger.Duration("next_retry_in", next),
				logger.Error(err),
			}
			if attempts <= p.WarnThreshold {
				log.Warn("connection failed, retrying", fields...)
				return
			}
			log.Error("still unavailable, retrying", fields...)
		}),
	)
	if err != nil {
		log.Error("unavailable, giving up",
			logger.Int("attempts", attempts),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return zero, fmt.Errorf("%s unavailable after %d attempts: %w", backend, attempts, err)
	}

	log.Info("connected",
		logger.Int("attempts", attempts),
		logger.Duration("elapsed", time.Since(start)))
	return v, nil
}

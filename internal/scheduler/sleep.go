package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

// Sleep suspends for d or until ctx is done, whichever comes first.
// It returns an error wrapping domain.ErrCancelled when ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}
}

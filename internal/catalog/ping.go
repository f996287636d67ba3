package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

// Pinger issues the single outbound GET of the startup checks
type Pinger struct {
	url  string
	http *http.Client
}

// NewPinger creates a pinger for url. If timeout is 0, DefaultTimeout is used.
func NewPinger(url string, timeout time.Duration) *Pinger {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Pinger{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Ping returns nil on a 2xx answer.
// Any other answer or transport error wraps domain.ErrExternalCallFailed,
// unless ctx was cancelled, which yields domain.ErrCancelled.
func (p *Pinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrExternalCallFailed, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrExternalCallFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", domain.ErrExternalCallFailed, p.url, resp.StatusCode)
	}
	return nil
}

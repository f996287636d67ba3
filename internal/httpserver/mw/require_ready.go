package mw

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

// ReadinessFunc reports the host readiness signal.
type ReadinessFunc func() domain.Readiness

// RequireReady rejects requests with 503 until readiness is Ready.
func RequireReady(readiness ReadinessFunc, retryAfterSec int) func(http.Handler) http.Handler {
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	retry := strconv.Itoa(retryAfterSec)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if readiness() != domain.ReadinessReady {
				w.Header().Set("Retry-After", retry)
				http.Error(w, "service is starting", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

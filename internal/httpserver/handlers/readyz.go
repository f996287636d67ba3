package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready     bool   `json:"ready"`
	Readiness string `json:"readiness"`
	Mode      string `json:"mode"`
}

// Readyz answers 503 until the lifecycle coordinator reports Ready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := d.Lifecycle.Readiness()
		ready := readiness == domain.ReadinessReady

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{
			Ready:     ready,
			Readiness: readiness.String(),
			Mode:      d.Lifecycle.Mode().String(),
		})
	}
}

package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/warmup/internal/httpserver/deps"
	"github.com/MrSnakeDoc/warmup/internal/scheduler"
)

type startupResponse struct {
	Mode      string `json:"mode"`
	Readiness string `json:"readiness"`
	State     string `json:"state"`
	scheduler.Snapshot
}

// Startup reports the orchestration snapshot next to the readiness signal.
func Startup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Startup.Snapshot()
		writeJSON(w, http.StatusOK, startupResponse{
			Mode:      d.Lifecycle.Mode().String(),
			Readiness: d.Lifecycle.Readiness().String(),
			State:     snap.State.String(),
			Snapshot:  snap,
		})
	}
}

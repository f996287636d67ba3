package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/warmup/internal/httpserver/deps"
	"github.com/MrSnakeDoc/warmup/internal/httpserver/mw"
)

func init() { Register(registerMetrics) }

func registerMetrics(r chi.Router, d deps.Deps) {
	if d.MetricsHandler == nil {
		return
	}
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Method("GET", "/metrics", d.MetricsHandler)
}

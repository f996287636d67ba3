package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/warmup/internal/httpserver/deps"
	"github.com/MrSnakeDoc/warmup/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/warmup/internal/httpserver/mw"
)

// retryAfterSec is sent with 503 while the gate is closed.
const retryAfterSec = 5

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:      d.RateBurst,
		PerMinute:  d.RatePerMinute,
		MaxClients: 10000,
		TrustProxy: d.TrustProxy,
	}, d.Logger)

	r.Route("/api", func(api chi.Router) {
		api.With(limit).Get("/startup", handlers.Startup(d))

		// Readiness runs first: polling during startup spends no tokens.
		api.Route("/products", func(p chi.Router) {
			p.Use(mw.RequireReady(d.Lifecycle.Readiness, retryAfterSec))
			p.Use(limit)
			p.Get("/summary", handlers.ProductsSummary(d))
			p.Get("/status", handlers.ProductsStatus(d))
			p.Get("/stats", handlers.ProductsStats(d))
			p.Get("/categories", handlers.ProductsCategories(d))
			p.Get("/sample", handlers.ProductsSample(d))
		})
	})
}

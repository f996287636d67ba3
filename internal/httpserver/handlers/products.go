package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/warmup/internal/httpserver/deps"
)

func ProductsSummary(d deps.Deps) http.HandlerFunc {
	return serve(d, d.Queries.Summary)
}

func ProductsStatus(d deps.Deps) http.HandlerFunc {
	return serve(d, d.Queries.Status)
}

func ProductsStats(d deps.Deps) http.HandlerFunc {
	return serve(d, d.Queries.Stats)
}

func ProductsCategories(d deps.Deps) http.HandlerFunc {
	return serve(d, d.Queries.Categories)
}

func ProductsSample(d deps.Deps) http.HandlerFunc {
	return serve(d, d.Queries.Sample)
}

// serve adapts a read query to a JSON handler.
func serve[T any](d deps.Deps, fn func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

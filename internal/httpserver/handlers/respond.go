package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/warmup/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs the cause and hides it from the client.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	log.Error("request failed",
		logger.String("path", r.URL.Path),
		logger.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

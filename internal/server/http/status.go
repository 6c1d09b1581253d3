package httpserver

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/repository"
)

const pingTimeout = 2 * time.Second

// DBStatus handles GET /db-status.
func DBStatus(store repository.Pinger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		status := "Connected"
		if err := store.Ping(ctx); err != nil {
			log.Warn("db ping", zap.Error(err))
			status = "Disconnected"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

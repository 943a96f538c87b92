package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

// HealthCheck handles GET /api/health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event Scheduler API is running!"})
}

// DatabaseCheck handles GET /api/health/db by asking the store for its clock.
func DatabaseCheck(probe StatusProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probe == nil {
			writeError(w, http.StatusInternalServerError, "store", "Database connection failed")
			return
		}
		now, err := probe.DatabaseTime(r.Context())
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("database health check failed")
			writeError(w, http.StatusInternalServerError, "store", "Database connection failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   "Database connection successful!",
			"timestamp": now.UTC().Format(time.RFC3339),
		})
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by database.PostgresDB and database.RedisDB.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler accepts a nil redis when the rate limiter is disabled.
func NewHealthHandler(db Pinger, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Services map[string]string `json:"services,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
}

func (h *HealthHandler) APIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: "Friendship API is running"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{}
	ready := true

	if err := h.db.Health(ctx); err != nil {
		services["postgres"] = "unhealthy"
		ready = false
	} else {
		services["postgres"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			services["redis"] = "unhealthy"
			ready = false
		} else {
			services["redis"] = "healthy"
		}
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready", Services: services})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Services: services})
}

package handler

import (
	"net/http"
	"time"

	"cinetrivia/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(c *container.Container) *HealthHandler {
	return &HealthHandler{container: c}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// Check handles GET /health. Dependency failures degrade the status
// but still answer 200; the service itself is up.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deps := make(map[string]string)
	status := "healthy"

	if h.container.HasDatabase() {
		if err := h.container.DB.Health(ctx); err != nil {
			deps["postgres"] = "unreachable"
			status = "degraded"
		} else {
			deps["postgres"] = "ok"
		}
	} else {
		deps["postgres"] = "not configured"
	}

	if h.container.HasRedis() {
		if err := h.container.RedisClient.Health(ctx); err != nil {
			deps["redis"] = "unreachable"
			status = "degraded"
		} else {
			deps["redis"] = "ok"
		}
	} else {
		deps["redis"] = "not configured"
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC(),
		Service:      "cinetrivia",
		Dependencies: deps,
	})
}

package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose reachability is reported by the health endpoints.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. checks is keyed by service
// name, e.g. "database" or "redis"; nil entries are skipped.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	h := &HealthHandler{version: version, checks: make(map[string]Pinger, len(checks))}
	for name, p := range checks {
		if p != nil {
			h.checks[name] = p
		}
	}
	return h
}

// HealthResponse represents the response for health check endpoints.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services,omitempty"`
}

// probe pings every dependency and reports which ones are unhealthy.
func (h *HealthHandler) probe(ctx context.Context) (map[string]string, []string) {
	services := make(map[string]string, len(h.checks))
	var failed []string
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			services[name] = "unhealthy"
			failed = append(failed, name)
			continue
		}
		services[name] = "healthy"
	}
	sort.Strings(failed)
	return services, failed
}

// Health handles GET /health - comprehensive health check.
func (h *HealthHandler) Health(c *gin.Context) {
	services, failed := h.probe(c.Request.Context())
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Services: services,
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Services: services,
	})
}

// Ready handles GET /ready - readiness probe for Kubernetes.
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, failed := h.probe(c.Request.Context()); len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "failing": failed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live handles GET /live - liveness probe for Kubernetes.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

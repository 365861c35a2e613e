// Package health exposes liveness, readiness, and status probes for the
// credential trust engine. Readiness reflects the engine's own dependencies:
// durable stores, the revocation list backend, and the signing key.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// checkTimeout bounds each dependency probe so one slow backend cannot stall
// the readiness endpoint.
const checkTimeout = 2 * time.Second

// Check probes one dependency. It returns nil when the dependency is usable.
type Check func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Check
}

// Handler serves the probe endpoints.
type Handler struct {
	service     string
	environment string
	started     time.Time

	mu     sync.RWMutex
	checks []namedCheck
}

// New creates a probe handler for the named service.
func New(service, environment string) *Handler {
	return &Handler{
		service:     service,
		environment: environment,
		started:     time.Now(),
	}
}

// RegisterCheck adds a named dependency probe to the readiness endpoint.
// Components are reported in registration order.
func (h *Handler) RegisterCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Register mounts the probe routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleStatus)
	r.Get("/health/live", h.handleLiveness)
	r.Get("/health/ready", h.handleReadiness)
}

func (h *Handler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ComponentStatus reports one dependency's probe outcome.
type ComponentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadinessResponse is the readiness probe payload.
type ReadinessResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	response := ReadinessResponse{Status: "ready"}
	for _, c := range checks {
		component := ComponentStatus{Name: c.name, Status: "up"}
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		if err := c.check(ctx); err != nil {
			component.Status = "down"
			component.Error = err.Error()
			response.Status = "degraded"
		}
		cancel()
		response.Components = append(response.Components, component)
	}

	code := http.StatusOK
	if response.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, response)
}

// StatusResponse is the general status payload.
type StatusResponse struct {
	Service       string `json:"service"`
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	CheckedAt     string `json:"checked_at"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Service:       h.service,
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		CheckedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

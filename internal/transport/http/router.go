// Package httptransport is the thin HTTP glue over the trust engine services.
// Handlers decode requests, delegate, and encode responses; business logic
// stays in the service packages.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veritas/internal/platform/health"
	"veritas/internal/platform/middleware"
)

// Handlers groups the per-area handlers the router mounts.
type Handlers struct {
	Certificates *CertificateHandler
	Credentials  *CredentialHandler
	Revocations  *RevocationHandler
	Health       *health.Handler
}

// NewRouter wires all public endpoints with the shared middleware stack.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	if h.Health != nil {
		h.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if h.Certificates != nil {
		h.Certificates.Register(r)
	}
	if h.Credentials != nil {
		h.Credentials.Register(r)
	}
	if h.Revocations != nil {
		h.Revocations.Register(r)
	}

	return r
}

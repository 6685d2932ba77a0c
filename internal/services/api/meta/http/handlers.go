// Package http provides meta endpoints
package http

import (
	"context"
	"net/http"
	"time"

	"tulflow/internal/core/version"
	"tulflow/internal/modkit/httpkit"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is one named readiness dependency; a nil Pinger is reported as skipped
type Check struct {
	Name   string
	Pinger Pinger
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Checks      []Check
	Timeout     time.Duration // per readiness probe, default 2s
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail skipped
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status"` // ok degraded fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// @Summary Health check
// @Tags Meta
// @Produce json
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}, nil
}

// @Summary Readiness probe over the ledger, audit and object store backends
// @Tags Meta
// @Produce json
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	out := ReadyResponse{Status: "ok", Checks: make([]ReadyCheck, 0, len(h.deps.Checks))}
	for _, c := range h.deps.Checks {
		rc := ReadyCheck{Name: c.Name, Status: "ok"}
		if c.Pinger == nil {
			rc.Status = "skipped"
			if out.Status == "ok" {
				out.Status = "degraded"
			}
			out.Checks = append(out.Checks, rc)
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.deps.Timeout)
		if err := c.Pinger.Ping(ctx); err != nil {
			rc.Status, rc.Error = "fail", err.Error()
			out.Status = "fail"
		}
		cancel()
		out.Checks = append(out.Checks, rc)
	}
	out.Now = time.Now().UTC().Format(time.RFC3339)
	return out, nil
}

// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

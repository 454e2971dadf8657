package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/service"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "degraded"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// SamplerStatus is the part of the sampler the health check reads.
type SamplerStatus interface {
	Snapshot() service.SamplerSnapshot
}

// HealthChecker reports the state of the agent.
type HealthChecker struct {
	holder  *session.Holder
	sampler SamplerStatus
	version string
}

// NewHealthChecker creates a HealthChecker. Pass nil for components that
// aren't available.
func NewHealthChecker(holder *session.Holder, sampler SamplerStatus, version string) *HealthChecker {
	return &HealthChecker{
		holder:  holder,
		sampler: sampler,
		version: version,
	}
}

// Check reports the session and sampler state. A sampler that is running
// but cannot get a position is degraded; the agent itself stays up.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.holder != nil {
		if cur, ok := h.holder.Current(); ok {
			checks["session"] = fmt.Sprintf("active: %s", cur.Role)
		} else {
			checks["session"] = "none"
		}
	} else {
		checks["session"] = "not configured"
	}

	if h.sampler != nil {
		snap := h.sampler.Snapshot()
		switch {
		case !snap.Active:
			checks["sampler"] = "idle"
		case snap.Notice == location.DeniedNotice:
			checks["sampler"] = "degraded: position unavailable"
			healthy = false
		case snap.LastUpload.IsZero():
			checks["sampler"] = "starting"
		default:
			checks["sampler"] = "ok: last upload " + snap.LastUpload.UTC().Format("15:04:05")
		}
	} else {
		checks["sampler"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint. It answers 200
// even when degraded.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(health)
	})
}

// healthHandler is the fallback when no checker is configured.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", Checks: map[string]string{}})
	})
}

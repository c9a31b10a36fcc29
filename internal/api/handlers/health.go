// Package handlers provides HTTP request handlers for the docsync API.
package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"docsync/internal/api/response"
	"docsync/internal/config"
)

// Pinger is implemented by any dependency the health handler can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health and readiness check endpoints.
type HealthHandler struct {
	config    *config.Config
	startTime time.Time
	db        Pinger
	vectors   Pinger
}

// NewHealthHandler creates a new health check handler. db and vectors may be
// nil, in which case the corresponding dependency check is skipped (useful
// in tests and before the server has finished wiring its stores).
func NewHealthHandler(cfg *config.Config, db, vectors Pinger) *HealthHandler {
	return &HealthHandler{
		config:    cfg,
		startTime: time.Now(),
		db:        db,
		vectors:   vectors,
	}
}

// HealthStatus represents the health check response structure.
type HealthStatus struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	System    SystemInfo       `json:"system"`
}

// Check represents an individual health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo represents basic runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemoryMB     uint64 `json:"memory_mb"`
}

// Handle processes overview health check requests.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := map[string]Check{
		"config":   h.checkConfiguration(),
		"memory":   h.checkMemory(),
		"database": h.checkDependency(ctx, h.db),
		"vectors":  h.checkDependency(ctx, h.vectors),
	}

	status := h.overallStatus(checks)
	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	body := HealthStatus{
		Status:    status,
		Version:   "0.1.0",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		System:    h.systemInfo(),
	}

	w.WriteHeader(statusCode)
	response.WriteSuccess(w, body)
}

// HandleReadiness reports whether the server is ready to accept traffic:
// both stores must be reachable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	db := h.checkDependency(ctx, h.db)
	vectors := h.checkDependency(ctx, h.vectors)

	if db.Status == "unhealthy" || vectors.Status == "unhealthy" {
		response.WriteServiceUnavailable(w, "dependencies not ready")
		return
	}
	response.WriteSuccess(w, map[string]string{"status": "ready"})
}

// HandleLiveness reports that the process is running.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, map[string]string{"status": "alive"})
}

func (h *HealthHandler) checkDependency(ctx context.Context, p Pinger) Check {
	if p == nil {
		return Check{Status: "skipped", Message: "not configured"}
	}

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency.Round(time.Millisecond).String()}
	}
	return Check{Status: "healthy", Latency: latency.Round(time.Millisecond).String()}
}

func (h *HealthHandler) checkMemory() Check {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryMB := m.Alloc / 1024 / 1024
	if memoryMB > 500 {
		return Check{Status: "warning", Message: "high memory usage"}
	}
	return Check{Status: "healthy"}
}

func (h *HealthHandler) checkConfiguration() Check {
	if err := h.config.Validate(); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy"}
}

func (h *HealthHandler) systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		MemoryMB:     m.Alloc / 1024 / 1024,
	}
}

func (h *HealthHandler) overallStatus(checks map[string]Check) string {
	hasUnhealthy := false
	hasWarning := false

	for _, check := range checks {
		switch check.Status {
		case "unhealthy":
			hasUnhealthy = true
		case "warning":
			hasWarning = true
		}
	}

	switch {
	case hasUnhealthy:
		return "unhealthy"
	case hasWarning:
		return "degraded"
	default:
		return "healthy"
	}
}

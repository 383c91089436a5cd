package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/artpar/recordbase/core/registry"
)

// DoctorResponse represents the system health check response.
type DoctorResponse struct {
	Status    string        `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
	System    SystemInfo    `json:"system"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo represents system information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
	Uptime       string `json:"uptime,omitempty"`
}

var startTime = time.Now()

// Doctor runs the store, registry and memory checks.
func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	version := h.version
	if version == "" {
		version = "dev"
	}
	response := DoctorResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
		Checks: []HealthCheck{
			h.checkDatabase(ctx),
			h.checkRegistry(),
			checkMemory(),
		},
	}

	hasWarn, hasFail := false, false
	for _, check := range response.Checks {
		switch check.Status {
		case "warn":
			hasWarn = true
		case "fail":
			hasFail = true
		}
	}
	if hasFail {
		response.Status = "unhealthy"
	} else if hasWarn {
		response.Status = "degraded"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	response.System = SystemInfo{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     formatBytes(memStats.Alloc),
		MemSys:       formatBytes(memStats.Sys),
		Uptime:       time.Since(startTime).Round(time.Second).String(),
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

func (h *Handler) checkDatabase(ctx context.Context) HealthCheck {
	check := HealthCheck{Name: "database", Status: "pass"}
	if h.store == nil {
		check.Status = "warn"
		check.Message = "No store health check configured"
		return check
	}

	start := time.Now()
	err := h.store.HealthCheck(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Status = "fail"
		check.Message = fmt.Sprintf("Database check failed: %v", err)
	} else {
		check.Message = "Database connection healthy"
	}
	return check
}

// checkRegistry verifies relation targets and foreign keys of every model.
func (h *Handler) checkRegistry() HealthCheck {
	check := HealthCheck{Name: "registry", Status: "pass"}

	n := len(h.manager.Models())
	if n == 0 {
		check.Status = "warn"
		check.Message = "No models registered"
		return check
	}

	err := h.manager.Check()
	var conflict *registry.ConflictError
	switch {
	case err == nil:
		check.Message = fmt.Sprintf("%d models registered", n)
	case errors.As(err, &conflict):
		check.Status = "fail"
		check.Message = fmt.Sprintf("%d relation problems: %v", len(conflict.Problems), err)
	default:
		check.Status = "fail"
		check.Message = err.Error()
	}
	return check
}

func checkMemory() HealthCheck {
	check := HealthCheck{Name: "memory", Status: "pass"}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Warn if using more than 500MB
	if memStats.Alloc > 500*1024*1024 {
		check.Status = "warn"
		check.Message = fmt.Sprintf("High memory usage: %s", formatBytes(memStats.Alloc))
	} else {
		check.Message = fmt.Sprintf("Memory usage: %s", formatBytes(memStats.Alloc))
	}
	return check
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

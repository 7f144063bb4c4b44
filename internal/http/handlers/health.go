package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe is one dependency checked by the readiness endpoint. A failing
// non-critical probe marks the service degraded but keeps it in rotation.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Critical bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	probes    []Probe
	startTime time.Time
	version   string
}

// NewHealthHandler builds the handler; Health only runs critical probes.
func NewHealthHandler(version string, probes ...Probe) *HealthHandler {
	return &HealthHandler{
		probes:    probes,
		startTime: time.Now(),
		version:   version,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness runs every probe (for k8s readiness probe)
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.probes)+1)
	status := "healthy"
	for _, p := range h.probes {
		err := p.Check(ctx)
		switch {
		case err == nil:
			checks[p.Name] = "healthy"
		case p.Critical:
			checks[p.Name] = "unhealthy: " + err.Error()
			status = "unhealthy"
		default:
			checks[p.Name] = "degraded: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	checks["memory_alloc_mb"] = fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024)

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health is the quick check: critical probes only, no details.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for _, p := range h.probes {
		if !p.Critical {
			continue
		}
		if err := p.Check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  p.Name + " unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

package services

import (
	"time"
)

// HealthStatus represents the health status of the engine
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth reports the state of one component
type ComponentHealth struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// SystemHealth reports the overall engine state
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Components []ComponentHealth `json:"components"`
}

// HealthService checks the engine's components. Artifacts are immutable
// after load, so the checks here are cheap consistency reads, not I/O.
type HealthService struct {
	gate      CandidateSource
	cache     *RoutingCache
	startTime time.Time
}

// NewHealthService creates a health service
func NewHealthService(gate CandidateSource, cache *RoutingCache) *HealthService {
	return &HealthService{
		gate:      gate,
		cache:     cache,
		startTime: time.Now(),
	}
}

// Check evaluates all components
func (h *HealthService) Check() SystemHealth {
	components := []ComponentHealth{
		h.checkGate(),
		h.checkCache(),
	}

	overall := HealthStatusHealthy
	for _, c := range components {
		if c.Status == HealthStatusUnhealthy {
			overall = HealthStatusUnhealthy
			break
		}
		if c.Status == HealthStatusDegraded {
			overall = HealthStatusDegraded
		}
	}

	return SystemHealth{
		Status:     overall,
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Components: components,
	}
}

func (h *HealthService) checkGate() ComponentHealth {
	c := ComponentHealth{Name: "candidate_gate", Status: HealthStatusHealthy}
	if h.gate.ArtifactVersion() <= 0 {
		c.Status = HealthStatusUnhealthy
		c.Message = "no artifact version loaded"
	}
	return c
}

func (h *HealthService) checkCache() ComponentHealth {
	c := ComponentHealth{Name: "routing_cache", Status: HealthStatusHealthy}
	stats := h.cache.Stats()
	if stats.MaxSize > 0 && stats.Entries >= stats.MaxSize {
		c.Status = HealthStatusDegraded
		c.Message = "cache at capacity, evicting"
	}
	return c
}

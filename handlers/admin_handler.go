package handlers

import (
	"net/http"

	"canon-router/models"
	"canon-router/services"
)

// AdminHandler serves the operational surface: stats, artifact reload and
// cache management. These are the only administrative entry points; no
// other runtime mutation of artifacts exists.
type AdminHandler struct {
	store  *services.ArtifactStore // nil when the static gate is selected
	gate   services.CandidateSource
	cache  *services.RoutingCache
	health *services.HealthService
	logger services.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(
	store *services.ArtifactStore,
	gate services.CandidateSource,
	cache *services.RoutingCache,
	health *services.HealthService,
	logger services.Logger,
) *AdminHandler {
	return &AdminHandler{
		store:  store,
		gate:   gate,
		cache:  cache,
		health: health,
		logger: logger,
	}
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var stats models.EngineStats
	if h.store != nil {
		stats = h.store.Stats()
	} else {
		stats = models.EngineStats{
			ArtifactVersion: h.gate.ArtifactVersion(),
			TaxonomyVersion: h.gate.ArtifactVersion(),
			ItemsByCategory: map[string]int{},
		}
	}

	cacheStats := h.cache.Stats()
	stats.CacheHitRate = cacheStats.HitRate
	stats.CacheEntries = cacheStats.Entries

	writeJSONResponse(w, http.StatusOK, stats)
}

// Reload handles POST /api/v1/admin/reload. It picks up the latest
// published artifact version and swaps it in atomically; cached results
// keyed to the old version become unreachable by key construction.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeErrorResponse(w, http.StatusConflict,
			"Artifact reload is not available with the static candidate gate", "")
		return
	}

	before := h.store.Bundle().ArtifactVersion
	if err := h.store.Reload(); err != nil {
		h.logger.Error("artifact reload failed", err)
		writeAppErrorResponse(w, err)
		return
	}
	after := h.store.Bundle().ArtifactVersion

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"previous_version": before,
		"current_version":  after,
		"changed":          before != after,
	})
}

// CacheStats handles GET /api/v1/cache/stats
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.cache.Stats())
}

// CacheClear handles POST /api/v1/cache/clear
func (h *AdminHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Health handles GET /api/v1/health
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.health.Check()

	status := http.StatusOK
	if health.Status == services.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, health)
}

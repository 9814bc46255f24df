package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canon-router/models"
)

func TestHealthService_Healthy(t *testing.T) {
	cache := newTestCache(nil)
	defer cache.Stop()

	health := NewHealthService(NewStaticGate(), cache).Check()
	assert.Equal(t, HealthStatusHealthy, health.Status)
	require.Len(t, health.Components, 2)
	for _, c := range health.Components {
		assert.Equal(t, HealthStatusHealthy, c.Status)
	}
}

func TestHealthService_DegradedWhenCacheFull(t *testing.T) {
	cache := NewRoutingCache(time.Hour, 5*time.Minute, 2, 0, nil)
	defer cache.Stop()

	for i := 0; i < 2; i++ {
		cache.Put(fmt.Sprintf("query %d", i), "philosophy", "", 1, &models.RoutingResult{IsValid: true})
	}

	health := NewHealthService(NewStaticGate(), cache).Check()
	assert.Equal(t, HealthStatusDegraded, health.Status)
}

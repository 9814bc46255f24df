package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canon-router/errors"
	"canon-router/models"
)

func newTestEngine(recommender Recommender) (*RoutingEngine, *RoutingCache) {
	return newTestEngineWithGate(NewStaticGate(), recommender)
}

func newTestEngineWithGate(gate CandidateSource, recommender Recommender) (*RoutingEngine, *RoutingCache) {
	cache := NewRoutingCache(time.Hour, 5*time.Minute, 100, 0, nil)
	logger := NewDefaultLogger()
	validator := NewRecommendationValidator(logger)
	engine := NewRoutingEngine(NewCategoryMapper(), gate, cache, recommender, validator, logger, 5*time.Second)
	return engine, cache
}

// unpinnedGate fails every read that does not go through a snapshot: its
// direct methods report a different version each call and no candidates at
// all. A route that mixes snapshot and direct reads cannot succeed over it.
type unpinnedGate struct {
	pinned      CandidateSource
	liveVersion int
}

func (g *unpinnedGate) Snapshot() CandidateSource { return g.pinned }

func (g *unpinnedGate) ArtifactVersion() int {
	g.liveVersion++
	return 100 + g.liveVersion
}

func (g *unpinnedGate) CandidateItems(categoryID, subcategoryID string, maxItems int) []string {
	return nil
}

func (g *unpinnedGate) CandidateSubitems(itemIDs []string, maxPerItem int) map[string][]models.Subitem {
	return nil
}

func (g *unpinnedGate) ItemMeta(itemID string) (models.Item, bool) {
	return models.Item{}, false
}

func TestRoutingEngine_Route(t *testing.T) {
	mock := NewMockRecommender()
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	result, err := engine.Route(context.Background(),
		"How do I deal with things I can't control?", "Philosophy", "Stoicism")
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.NotEmpty(t, result.Paths)

	// All surfaced metadata comes from the candidate table
	rec := result.Paths[0].Recommendations[0]
	assert.NotEmpty(t, rec.ItemTitle)
	assert.NotEmpty(t, rec.SubitemID)
	assert.Equal(t, int64(1), mock.Calls())
}

func TestRoutingEngine_SecondCallHitsCache(t *testing.T) {
	mock := NewMockRecommender()
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	ctx := context.Background()
	first, err := engine.Route(ctx, "What is virtue?", "Philosophy", "Stoicism")
	require.NoError(t, err)

	// Same query modulo normalization must not call the recommender again
	second, err := engine.Route(ctx, "what is virtue", "Philosophy", "Stoicism")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mock.Calls())
	assert.Equal(t, int64(1), cache.Stats().Hits)
}

func TestRoutingEngine_ReadsOneSnapshotPerRoute(t *testing.T) {
	mock := NewMockRecommender()
	gate := &unpinnedGate{pinned: NewStaticGate()}
	engine, cache := newTestEngineWithGate(gate, mock)
	defer cache.Stop()

	result, err := engine.Route(context.Background(), "What is virtue?", "Philosophy", "Stoicism")
	require.NoError(t, err)
	require.True(t, result.IsValid)

	// The result is cached under the snapshot's version, so version,
	// candidates and metadata all came from the same pinned view
	cached, ok := cache.Get("What is virtue?", "philosophy", "stoicism", gate.pinned.ArtifactVersion())
	require.True(t, ok)
	assert.Equal(t, result, cached)
}

func TestRoutingEngine_ColdRouteCountsOneMiss(t *testing.T) {
	mock := NewMockRecommender()
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	_, err := engine.Route(context.Background(), "What is virtue?", "Philosophy", "Stoicism")
	require.NoError(t, err)

	// One uncached route is exactly one miss; the double-check inside the
	// single-flight call must not count a second one
	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestRoutingEngine_EmptyQuestion(t *testing.T) {
	engine, cache := newTestEngine(NewMockRecommender())
	defer cache.Stop()

	_, err := engine.Route(context.Background(), "   ", "Philosophy", "")
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeMissingField, appErr.Code)
}

func TestRoutingEngine_UnknownCategoryRefuses(t *testing.T) {
	mock := NewMockRecommender()
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	result, err := engine.Route(context.Background(), "anything", "Astrology", "")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.RefusalReason, "Astrology")

	// Refused before candidates, so the recommender never ran and nothing
	// was cached
	assert.Equal(t, int64(0), mock.Calls())
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestRoutingEngine_EmptyCandidatesRefuses(t *testing.T) {
	mock := NewMockRecommender()
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	// History is a known category but the static table has no history titles
	result, err := engine.Route(context.Background(), "what caused the fall of Rome", "History", "")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.RefusalReason, "no items mapped to history")
	assert.Equal(t, int64(0), mock.Calls())
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestRoutingEngine_RecommenderFailureRefuses(t *testing.T) {
	mock := NewMockRecommender()
	mock.RecommendFunc = func(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error) {
		return nil, errors.NewExternalServiceError(errors.ErrCodeRecommenderFailed, "upstream unavailable", nil)
	}
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	result, err := engine.Route(context.Background(), "What is virtue?", "Philosophy", "Stoicism")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, RefusalRecommenderUnavailable, result.RefusalReason)

	// The refusal is cached, so retrying immediately does not re-invoke
	// the failing recommender
	_, err = engine.Route(context.Background(), "What is virtue?", "Philosophy", "Stoicism")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mock.Calls())
}

func TestRoutingEngine_OutOfSetRecommendationRefuses(t *testing.T) {
	mock := NewMockRecommender()
	mock.RecommendFunc = func(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error) {
		return &models.RecommenderResponse{
			Paths: []models.SuggestedPath{
				{
					Angle: "Invented reading",
					Suggestions: []models.Suggestion{
						{ItemID: "item_FAKE123", SubitemNumber: 1, Rationale: "Hallucinated"},
					},
				},
			},
		}, nil
	}
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	result, err := engine.Route(context.Background(), "What is virtue?", "Philosophy", "Stoicism")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, RefusalNoValidRecommendations, result.RefusalReason)
}

func TestRoutingEngine_RecommenderSeesOnlyCandidates(t *testing.T) {
	var captured *models.RecommenderRequest
	mock := NewMockRecommender()
	mock.RecommendFunc = func(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error) {
		captured = req
		return defaultRecommend(req), nil
	}
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	_, err := engine.Route(context.Background(), "How do I win without fighting?", "Strategy", "Military Strategy")
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "Strategy", captured.CategoryName)
	require.NotEmpty(t, captured.Items)
	for _, item := range captured.Items {
		assert.Contains(t, item.ItemID, "item_")
		assert.NotEmpty(t, item.Title)
	}
}

func TestRoutingEngine_CancelledCaller(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	mock := NewMockRecommender()
	mock.RecommendFunc = func(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error) {
		<-release
		return defaultRecommend(req), nil
	}
	engine, cache := newTestEngine(mock)
	defer cache.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := engine.Route(ctx, "What is virtue?", "Philosophy", "Stoicism")
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled route call did not return")
	}
}

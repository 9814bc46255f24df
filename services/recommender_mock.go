package services

import (
	"context"
	"sync/atomic"

	"canon-router/models"
)

// MockRecommender provides a deterministic recommender for development and
// testing. It satisfies the same contract as the real one and its output
// still goes through the validator.
type MockRecommender struct {
	RecommendFunc func(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error)
	calls         int64
}

// NewMockRecommender creates a mock with default behavior
func NewMockRecommender() *MockRecommender {
	return &MockRecommender{}
}

// Recommend implements Recommender with mock behavior
func (m *MockRecommender) Recommend(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.RecommendFunc != nil {
		return m.RecommendFunc(ctx, req)
	}
	return defaultRecommend(req), nil
}

// Calls reports how many times Recommend was invoked
func (m *MockRecommender) Calls() int64 {
	return atomic.LoadInt64(&m.calls)
}

// defaultRecommend proposes up to two single-suggestion paths from the
// first candidates, first subitem each.
func defaultRecommend(req *models.RecommenderRequest) *models.RecommenderResponse {
	resp := &models.RecommenderResponse{}

	angles := []string{"Foundational understanding", "Alternative perspective"}
	for i, item := range req.Items {
		if i >= len(angles) {
			break
		}
		number := 1
		if len(item.Subitems) > 0 {
			number = item.Subitems[0].Number
		}
		resp.Paths = append(resp.Paths, models.SuggestedPath{
			Angle: angles[i],
			Suggestions: []models.Suggestion{
				{
					ItemID:        item.ItemID,
					SubitemNumber: number,
					Rationale:     "This text addresses the core concepts related to your question.",
				},
			},
		})
	}

	return resp
}

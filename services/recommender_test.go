package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canon-router/config"
	"canon-router/errors"
	"canon-router/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	req := &models.RecommenderRequest{
		Query:        "How do I deal with things I can't control?",
		CategoryName: "Philosophy",
		Items: []models.CandidateItem{
			{
				ItemID: "item_d9d95145167f",
				Title:  "Meditations",
				Author: "Marcus Aurelius",
				Subitems: []models.CandidateSubitem{
					{SubitemID: "sub_med_001", Number: 1, Title: "Book One"},
					{SubitemID: "sub_med_002", Number: 2, Title: "Book Two"},
				},
			},
			{
				ItemID: "item_e500fb226315",
				Title:  "The Art of War",
				Author: "Sun Tzu",
			},
		},
	}

	prompt := buildSystemPrompt(req)

	assert.Contains(t, prompt, "item_d9d95145167f")
	assert.Contains(t, prompt, `"Meditations" by Marcus Aurelius`)
	assert.Contains(t, prompt, "Ch1: Book One")
	assert.Contains(t, prompt, "Ch2: Book Two")
	assert.Contains(t, prompt, "Category: Philosophy")

	// Empty subcategory falls back to General; no chapter map means a
	// single full-text entry
	assert.Contains(t, prompt, "Subcategory: General")
	assert.Contains(t, prompt, "Chapter 1: Full Text")

	// The constraints the validator later enforces are stated up front
	assert.Contains(t, prompt, "ONLY use item_ids from the candidate list")
	assert.Contains(t, prompt, "Total max 6 suggestions")
}

func TestNewOpenAIRecommender_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIRecommender(&config.RecommenderConfig{Model: "gpt-4o-mini"}, NewDefaultLogger())
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConfigurationError, appErr.Code)
}

func TestMockRecommender_DefaultBehavior(t *testing.T) {
	mock := NewMockRecommender()

	req := &models.RecommenderRequest{
		Query: "q",
		Items: []models.CandidateItem{
			{ItemID: "item_a", Subitems: []models.CandidateSubitem{{Number: 1}}},
			{ItemID: "item_b", Subitems: []models.CandidateSubitem{{Number: 1}}},
			{ItemID: "item_c", Subitems: []models.CandidateSubitem{{Number: 1}}},
		},
	}

	resp, err := mock.Recommend(context.Background(), req)
	require.NoError(t, err)

	// At most two paths, one suggestion each, all from the candidate list
	require.Len(t, resp.Paths, 2)
	assert.Equal(t, "item_a", resp.Paths[0].Suggestions[0].ItemID)
	assert.Equal(t, "item_b", resp.Paths[1].Suggestions[0].ItemID)
	assert.Equal(t, int64(1), mock.Calls())
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canon-router/models"
	"canon-router/services"
)

func newTestAskHandler(t *testing.T) (*AskHandler, *services.RoutingCache) {
	t.Helper()
	gate := services.NewStaticGate()
	cache := services.NewRoutingCache(time.Hour, 5*time.Minute, 100, 0, nil)
	logger := services.NewDefaultLogger()
	validator := services.NewRecommendationValidator(logger)
	engine := services.NewRoutingEngine(
		services.NewCategoryMapper(), gate, cache,
		services.NewMockRecommender(), validator, logger, 5*time.Second,
	)
	return NewAskHandler(engine), cache
}

func postAsk(t *testing.T, handler *AskHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.Ask(w, req)
	return w
}

func TestAskHandler_Ask(t *testing.T) {
	handler, cache := newTestAskHandler(t)
	defer cache.Stop()

	w := postAsk(t, handler, models.AskRequest{
		Question: "How do I deal with things I can't control?",
		Category: "Philosophy",
		Subcategory: "Stoicism",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.IsValid)
	assert.NotEmpty(t, resp.Result.Paths)
	assert.Equal(t, "How do I deal with things I can't control?", resp.Question)
}

func TestAskHandler_Refusal(t *testing.T) {
	handler, cache := newTestAskHandler(t)
	defer cache.Stop()

	// Unknown category is a refusal with a reason, not an HTTP error
	w := postAsk(t, handler, models.AskRequest{
		Question: "anything",
		Category: "Astrology",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Result.IsValid)
	assert.NotEmpty(t, resp.Result.RefusalReason)
}

func TestAskHandler_MissingQuestion(t *testing.T) {
	handler, cache := newTestAskHandler(t)
	defer cache.Stop()

	w := postAsk(t, handler, models.AskRequest{Category: "Philosophy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Contains(t, apiErr.Message, "question")
}

func TestAskHandler_MissingCategory(t *testing.T) {
	handler, cache := newTestAskHandler(t)
	defer cache.Stop()

	w := postAsk(t, handler, models.AskRequest{Question: "What is virtue?"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskHandler_InvalidJSON(t *testing.T) {
	handler, cache := newTestAskHandler(t)
	defer cache.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

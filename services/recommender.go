package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"canon-router/config"
	"canon-router/errors"
	"canon-router/models"
)

const recommenderMaxTokens = 600

// OpenAIRecommender calls an OpenAI-compatible chat completion API. It is
// the only place model calls are made; everything it returns is untrusted
// until the validator has seen it.
type OpenAIRecommender struct {
	client      *openai.Client
	model       string
	temperature float32
	retryer     *errors.Retryer
	logger      Logger
}

// NewOpenAIRecommender creates the OpenAI-backed recommender
func NewOpenAIRecommender(cfg *config.RecommenderConfig, logger Logger) (*OpenAIRecommender, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewInternalError(errors.ErrCodeConfigurationError,
			"OPENAI_API_KEY not set", nil)
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &OpenAIRecommender{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		retryer: errors.NewRetryer(&errors.RetryConfig{
			MaxRetries:    cfg.MaxRetries,
			BaseDelay:     200 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			Jitter:        true,
		}),
		logger: logger,
	}, nil
}

// Recommend asks the model for parallel reading paths over the candidate
// set. The caller bounds the call with a context deadline; a deadline hit
// surfaces as a timeout error for the engine to turn into a refusal.
func (r *OpenAIRecommender) Recommend(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error) {
	systemPrompt := buildSystemPrompt(req)

	var content string
	err := r.retryer.Execute(ctx, func() error {
		start := time.Now()
		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: req.Query},
			},
			Temperature: r.temperature,
			MaxTokens:   recommenderMaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return errors.NewExternalServiceError(errors.ErrCodeRecommenderFailed,
				"chat completion failed", err)
		}
		if len(resp.Choices) == 0 {
			return errors.NewExternalServiceError(errors.ErrCodeRecommenderFailed,
				"chat completion returned no choices", nil)
		}

		content = resp.Choices[0].Message.Content
		r.logger.Debug("recommender call completed",
			String("model", r.model),
			Int("prompt_tokens", resp.Usage.PromptTokens),
			Int("completion_tokens", resp.Usage.CompletionTokens),
			Duration("latency", time.Since(start)),
		)
		return nil
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTimeoutError(errors.ErrCodeRecommenderTimeout,
				"recommender call timed out", err)
		}
		return nil, err
	}

	var parsed models.RecommenderResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errors.NewExternalServiceError(errors.ErrCodeRecommenderFailed,
			"recommender returned unparseable JSON", err)
	}
	return &parsed, nil
}

// buildSystemPrompt formats the candidate set and the routing rules. Only
// candidate items and their bounded subitem lists ever appear here.
func buildSystemPrompt(req *models.RecommenderRequest) string {
	var items []string
	for _, item := range req.Items {
		var subitemLines string
		if len(item.Subitems) > 0 {
			lines := make([]string, 0, len(item.Subitems))
			for _, s := range item.Subitems {
				lines = append(lines, fmt.Sprintf("Ch%d: %s", s.Number, s.Title))
			}
			subitemLines = strings.Join(lines, "\n    ")
		} else {
			subitemLines = "Chapter 1: Full Text"
		}
		items = append(items, fmt.Sprintf("  %s:\n    %q by %s\n    Chapters:\n    %s",
			item.ItemID, item.Title, item.Author, subitemLines))
	}

	subcategory := req.SubcategoryName
	if subcategory == "" {
		subcategory = "General"
	}

	return fmt.Sprintf(`You are a reading advisor. Given a question and candidate books, suggest PARALLEL reading paths.

Each path represents a DIFFERENT ANGLE on the question - not ranked alternatives, but genuinely different conceptual approaches.

Category: %s
Subcategory: %s

CANDIDATE BOOKS (you MUST choose from this list):
%s

RESPOND WITH ONLY VALID JSON:
{
  "paths": [
    {
      "angle": "Power dynamics",
      "suggestions": [
        {
          "item_id": "item_xxx",
          "subitem_number": 1,
          "rationale": "Why read this for THIS angle"
        }
      ]
    }
  ]
}

RULES:
- Return 2-4 PARALLEL paths
- Each path has 1-2 suggestions MAX
- Total max 6 suggestions across all paths
- Paths are DIFFERENT angles, not ranked alternatives
- Rationale explains WHY this angle, not WHAT the text says
- NO summaries, NO conclusions, NO ideology
- ONLY use item_ids from the candidate list above
- ONLY use chapter numbers that exist for each book
- If no relevant chapters found, return an empty paths array`,
		req.CategoryName, subcategory, strings.Join(items, "\n\n"))
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"canon-router/errors"
	"canon-router/models"
)

// Refusal reasons for the non-validator terminal states
const (
	RefusalRecommenderUnavailable = "could not identify relevant reading for this question"
)

// RoutingEngine drives one query through the full state machine:
// resolve category names, compute bounded candidates, check the cache,
// invoke the recommender under single-flight, validate, cache the outcome.
// All collaborators are injected at construction; the engine holds no
// global state and performs no background scheduling of its own.
type RoutingEngine struct {
	mapper      *CategoryMapper
	gate        CandidateSource
	cache       *RoutingCache
	recommender Recommender
	validator   *RecommendationValidator
	logger      Logger

	maxItems   int
	maxPerItem int
	timeout    time.Duration
}

// NewRoutingEngine wires the engine together
func NewRoutingEngine(
	mapper *CategoryMapper,
	gate CandidateSource,
	cache *RoutingCache,
	recommender Recommender,
	validator *RecommendationValidator,
	logger Logger,
	timeout time.Duration,
) *RoutingEngine {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &RoutingEngine{
		mapper:      mapper,
		gate:        gate,
		cache:       cache,
		recommender: recommender,
		validator:   validator,
		logger:      logger,
		maxItems:    DefaultMaxItems,
		maxPerItem:  DefaultMaxPerItem,
		timeout:     timeout,
	}
}

// Route processes one query. Every outcome is either a routing result
// (validated paths or refusal-with-reason) or a context error from the
// caller going away; recommender failures never propagate past here.
func (e *RoutingEngine) Route(ctx context.Context, query, categoryName, subcategoryName string) (*models.RoutingResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingField,
			"question must not be empty", nil)
	}

	categoryID, subcategoryID, err := e.mapper.ToIDs(categoryName, subcategoryName)
	if err != nil {
		// Unknown names are an input problem, recoverable by the caller;
		// reported as a refusal, never cached.
		if appErr, ok := errors.AsAppError(err); ok {
			return models.Refusal(appErr.Message), nil
		}
		return models.Refusal(err.Error()), nil
	}

	// One snapshot per call: version, candidates, subitems and metadata
	// all come from the same bundle even if a reload lands mid-route.
	gate := e.gate.Snapshot()
	artifactVersion := gate.ArtifactVersion()

	itemIDs := gate.CandidateItems(categoryID, subcategoryID, e.maxItems)
	if len(itemIDs) == 0 {
		pair := categoryID
		if subcategoryID != "" {
			pair = categoryID + "/" + subcategoryID
		}
		return models.Refusal(fmt.Sprintf("no items mapped to %s in taxonomy", pair)), nil
	}

	if cached, ok := e.cache.Get(query, categoryID, subcategoryID, artifactVersion); ok {
		e.logger.Debug("routing cache hit",
			String("category_id", categoryID),
			String("subcategory_id", subcategoryID),
		)
		return cached, nil
	}

	key := CacheKey(query, categoryID, subcategoryID, artifactVersion)
	return e.cache.Do(ctx, key, func() (*models.RoutingResult, error) {
		// A waiter that lost the single-flight race may find the winner's
		// result already cached. Peek keeps the stats honest: the caller's
		// miss was already counted.
		if cached, ok := e.cache.Peek(key); ok {
			return cached, nil
		}

		result := e.routeUncached(ctx, gate, query, categoryName, subcategoryName, itemIDs)
		e.cache.Put(query, categoryID, subcategoryID, artifactVersion, result)
		return result, nil
	})
}

// routeUncached invokes the recommender and validates its output against
// the snapshot the candidates came from. The call is detached from the
// caller's cancellation because other single-flight waiters may still need
// the result; only the fixed timeout bounds it.
func (e *RoutingEngine) routeUncached(ctx context.Context, gate CandidateSource, query, categoryName, subcategoryName string, itemIDs []string) *models.RoutingResult {
	subitems := gate.CandidateSubitems(itemIDs, e.maxPerItem)
	candidates := candidateMeta(gate, itemIDs)
	req := buildRequest(query, categoryName, subcategoryName, itemIDs, candidates, subitems)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.recommender.Recommend(callCtx, req)
	if err != nil {
		e.logger.Warn("recommender call failed",
			Err(err),
			Duration("elapsed", time.Since(start)),
		)
		return models.Refusal(RefusalRecommenderUnavailable)
	}

	result := e.validator.Validate(candidates, subitems, resp)
	e.logger.Info("query routed",
		String("category", categoryName),
		Bool("valid", result.IsValid),
		Int("paths", len(result.Paths)),
		Duration("elapsed", time.Since(start)),
	)
	return result
}

// candidateMeta resolves item metadata for every candidate from one gate
// snapshot
func candidateMeta(gate CandidateSource, itemIDs []string) map[string]models.Item {
	items := make(map[string]models.Item, len(itemIDs))
	for _, itemID := range itemIDs {
		if item, ok := gate.ItemMeta(itemID); ok {
			items[itemID] = item
		}
	}
	return items
}

// buildRequest assembles the recommender input from candidate data only
func buildRequest(
	query, categoryName, subcategoryName string,
	itemIDs []string,
	candidates map[string]models.Item,
	subitems map[string][]models.Subitem,
) *models.RecommenderRequest {
	req := &models.RecommenderRequest{
		Query:           query,
		CategoryName:    categoryName,
		SubcategoryName: subcategoryName,
	}

	for _, itemID := range itemIDs {
		item, ok := candidates[itemID]
		if !ok {
			continue
		}
		candidate := models.CandidateItem{
			ItemID: item.ItemID,
			Title:  item.Title,
			Author: item.Author,
		}
		for _, s := range subitems[itemID] {
			candidate.Subitems = append(candidate.Subitems, models.CandidateSubitem{
				SubitemID: s.SubitemID,
				Number:    s.Number,
				Title:     s.Title,
				WordCount: s.WordCount,
			})
		}
		req.Items = append(req.Items, candidate)
	}

	return req
}

// CacheStats exposes cache statistics for the admin surface
func (e *RoutingEngine) CacheStats() CacheStats {
	return e.cache.Stats()
}

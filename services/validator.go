package services

import (
	"canon-router/models"
)

// Validation caps. The recommender proposes; only what survives these
// checks is surfaced to a caller.
const (
	MaxPaths           = 4
	MaxPerPath         = 2
	MaxRecommendations = 6
)

// RefusalNoValidRecommendations is the refusal reason when validation
// leaves nothing standing
const RefusalNoValidRecommendations = "no valid recommendations in candidate set"

const (
	maxAngleLength     = 100
	maxRationaleLength = 200
	defaultRationale   = "Relevant to your question"
	defaultAngle       = "Reading path"
)

// RecommendationValidator enforces the fail-closed contract on recommender
// output. Suggestions referencing anything outside the candidate set are
// dropped; paths emptied by drops are dropped; if nothing remains, the
// caller gets an explicit refusal rather than an empty success. The
// validator is pure over the candidate data it is handed, so item metadata
// always comes from the same bundle the candidates were computed from.
type RecommendationValidator struct {
	logger Logger
}

// NewRecommendationValidator creates a validator
func NewRecommendationValidator(logger Logger) *RecommendationValidator {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &RecommendationValidator{logger: logger}
}

// Validate filters a recommender response down to suggestions provably
// inside the candidate set. All titles and authors in the output come from
// candidate metadata, never from recommender-claimed text.
func (v *RecommendationValidator) Validate(
	candidateItems map[string]models.Item,
	candidateSubitems map[string][]models.Subitem,
	resp *models.RecommenderResponse,
) *models.RoutingResult {
	if resp == nil {
		return models.Refusal(RefusalNoValidRecommendations)
	}

	var paths []models.ReadingPath
	totalRecs := 0
	dropped := 0

	for _, suggested := range resp.Paths {
		if len(paths) >= MaxPaths {
			break
		}

		var recs []models.Recommendation
		for _, s := range suggested.Suggestions {
			if totalRecs >= MaxRecommendations || len(recs) >= MaxPerPath {
				break
			}

			item, ok := candidateItems[s.ItemID]
			if !ok {
				dropped++
				continue
			}

			subitem, ok := findSubitem(candidateSubitems[s.ItemID], s.SubitemNumber)
			if !ok {
				dropped++
				continue
			}

			rationale := s.Rationale
			if rationale == "" {
				rationale = defaultRationale
			}
			rationale = truncateRunes(rationale, maxRationaleLength)

			recs = append(recs, models.Recommendation{
				ItemID:        item.ItemID,
				ItemTitle:     item.Title,
				ItemAuthor:    item.Author,
				SubitemID:     subitem.SubitemID,
				SubitemNumber: subitem.Number,
				SubitemTitle:  subitem.Title,
				Rationale:     rationale,
			})
			totalRecs++
		}

		if len(recs) == 0 {
			continue
		}

		angle := suggested.Angle
		if angle == "" {
			angle = defaultAngle
		}
		angle = truncateRunes(angle, maxAngleLength)

		paths = append(paths, models.ReadingPath{
			Angle:           angle,
			Recommendations: recs,
		})
	}

	if dropped > 0 {
		v.logger.Warn("dropped out-of-set suggestions", Int("dropped", dropped))
	}

	if len(paths) == 0 {
		return models.Refusal(RefusalNoValidRecommendations)
	}

	return &models.RoutingResult{
		Paths:   paths,
		IsValid: true,
	}
}

// findSubitem resolves a suggested sequence number against the candidate
// subitems for that item. An unresolvable number is an out-of-set
// reference and the suggestion is dropped.
func findSubitem(subitems []models.Subitem, number int) (models.Subitem, bool) {
	for _, s := range subitems {
		if s.Number == number {
			return s, true
		}
	}
	return models.Subitem{}, false
}

// truncateRunes caps s at max runes, never splitting a multibyte character
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package models

// Routing contracts. Every result is either a set of validated parallel
// reading paths or an explicit refusal with a human-readable reason. There
// is no partial-success shape.

// Recommendation points to a specific place to read. All metadata is filled
// from the candidate set, never from recommender-claimed text.
type Recommendation struct {
	ItemID        string `json:"item_id"`
	ItemTitle     string `json:"item_title"`
	ItemAuthor    string `json:"item_author"`
	SubitemID     string `json:"subitem_id"`
	SubitemNumber int    `json:"subitem_number"`
	SubitemTitle  string `json:"subitem_title"`
	Rationale     string `json:"rationale"`
}

// ReadingPath is one conceptual angle on the query. Paths are parallel,
// not ranked.
type ReadingPath struct {
	Angle           string           `json:"angle"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RoutingResult is the engine's terminal output for one query
type RoutingResult struct {
	Paths         []ReadingPath `json:"paths"`
	IsValid       bool          `json:"is_valid"`
	RefusalReason string        `json:"refusal_reason,omitempty"`
}

// Refusal builds a refusal result with a reason
func Refusal(reason string) *RoutingResult {
	return &RoutingResult{
		Paths:         []ReadingPath{},
		IsValid:       false,
		RefusalReason: reason,
	}
}

// Recommendations flattens all paths into a single list
func (r *RoutingResult) Recommendations() []Recommendation {
	var recs []Recommendation
	for _, p := range r.Paths {
		recs = append(recs, p.Recommendations...)
	}
	return recs
}

// TotalCount returns the number of recommendations across all paths
func (r *RoutingResult) TotalCount() int {
	n := 0
	for _, p := range r.Paths {
		n += len(p.Recommendations)
	}
	return n
}

// Recommender wire contract. The recommender is only ever shown candidate
// items; the validator treats its output as untrusted regardless.

// CandidateSubitem is a subitem as presented to the recommender
type CandidateSubitem struct {
	SubitemID string `json:"subitem_id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	WordCount int    `json:"word_count"`
}

// CandidateItem is an item as presented to the recommender
type CandidateItem struct {
	ItemID   string             `json:"item_id"`
	Title    string             `json:"title"`
	Author   string             `json:"author"`
	Subitems []CandidateSubitem `json:"subitems"`
}

// RecommenderRequest is the full input handed to a recommender
type RecommenderRequest struct {
	Query           string          `json:"query"`
	CategoryName    string          `json:"category_name"`
	SubcategoryName string          `json:"subcategory_name,omitempty"`
	Items           []CandidateItem `json:"items"`
}

// Suggestion references an item and a subitem by number. The validator
// resolves the number against the candidate subitems; an unresolvable
// number counts as an out-of-set reference.
type Suggestion struct {
	ItemID        string `json:"item_id"`
	SubitemNumber int    `json:"subitem_number"`
	Rationale     string `json:"rationale"`
}

// SuggestedPath is one unvalidated path proposed by the recommender
type SuggestedPath struct {
	Angle       string       `json:"angle"`
	Suggestions []Suggestion `json:"suggestions"`
}

// RecommenderResponse is the unvalidated recommender output
type RecommenderResponse struct {
	Paths []SuggestedPath `json:"paths"`
}

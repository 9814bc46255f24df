package models

// HTTP request/response shapes for the ask and admin surfaces.

// AskRequest is the body of POST /api/v1/ask
type AskRequest struct {
	Question    string `json:"question"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
}

// AskResponse wraps a routing result with the echoed question
type AskResponse struct {
	Question string        `json:"question"`
	Result   RoutingResult `json:"result"`
}

// APIError is the JSON error envelope
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// EngineStats is the admin stats payload
type EngineStats struct {
	ArtifactVersion int            `json:"artifact_version"`
	TaxonomyVersion int            `json:"taxonomy_version"`
	TotalCategories int            `json:"total_categories"`
	TotalItems      int            `json:"total_items"`
	TotalSubitems   int            `json:"total_subitems"`
	ItemsByCategory map[string]int `json:"items_by_category"`
	CacheHitRate    float64        `json:"cache_hit_rate"`
	CacheEntries    int            `json:"cache_entries"`
}

package services

import (
	"context"

	"canon-router/models"
)

// ArtifactSource loads versioned artifact documents from durable storage.
// Implementations: FileArtifactSource and database.PostgresArtifactSource.
// The source is chosen once at startup from configuration.
type ArtifactSource interface {
	// LatestVersion returns the highest published item/subitem index version
	LatestVersion() (int, error)
	// LoadTaxonomy loads the taxonomy document
	LoadTaxonomy() (*models.TaxonomyDoc, error)
	// LoadItemIndex loads the item index document at the given version
	LoadItemIndex(version int) (*models.ItemIndexDoc, error)
	// LoadSubitemIndex loads the sub-item index document at the given version
	LoadSubitemIndex(version int) (*models.SubitemIndexDoc, error)
}

// CandidateSource computes bounded, deterministic candidate sets. Both
// implementations (ArtifactGate, StaticGate) are pure over immutable data
// and safe for unsynchronized concurrent reads.
type CandidateSource interface {
	// Snapshot pins the current bundle for a sequence of reads. A caller
	// that needs version, candidates and metadata to agree with each other
	// must take one snapshot and do all reads through it; a reload swapping
	// bundles underneath never affects an already-taken snapshot.
	Snapshot() CandidateSource
	// CandidateItems returns at most maxItems item IDs matching the category
	// pair, in a stable order. An empty result is a routing dead-end, not an
	// error; callers must refuse.
	CandidateItems(categoryID, subcategoryID string, maxItems int) []string
	// CandidateSubitems returns at most maxPerItem subitems per item, sorted
	// by sequence number
	CandidateSubitems(itemIDs []string, maxPerItem int) map[string][]models.Subitem
	// ItemMeta returns item metadata for a candidate item ID
	ItemMeta(itemID string) (models.Item, bool)
	// ArtifactVersion returns the version candidate sets are derived from
	ArtifactVersion() int
}

// Recommender is the external, untrusted suggestion generator. It is only
// ever handed the candidate set and the query; its output goes through the
// validator before anything reaches a caller. Mock implementations satisfy
// the same contract as real ones.
type Recommender interface {
	Recommend(ctx context.Context, req *models.RecommenderRequest) (*models.RecommenderResponse, error)
}

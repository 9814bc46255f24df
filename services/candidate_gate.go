package services

import (
	"sort"

	"canon-router/models"
)

// Default candidate set bounds
const (
	DefaultMaxItems   = 12
	DefaultMaxPerItem = 8
)

// ArtifactGate computes candidate sets from the artifact store's current
// bundle. Each Snapshot pins one immutable bundle, so a sequence of reads
// through it stays consistent even while a reload swaps versions
// underneath; calling the gate directly takes a fresh snapshot per method.
type ArtifactGate struct {
	store *ArtifactStore
}

// NewArtifactGate creates an artifact-backed candidate gate
func NewArtifactGate(store *ArtifactStore) *ArtifactGate {
	return &ArtifactGate{store: store}
}

// Snapshot pins the store's current bundle
func (g *ArtifactGate) Snapshot() CandidateSource {
	return &bundleGate{bundle: g.store.Bundle()}
}

// CandidateItems reads through a fresh snapshot
func (g *ArtifactGate) CandidateItems(categoryID, subcategoryID string, maxItems int) []string {
	return g.Snapshot().CandidateItems(categoryID, subcategoryID, maxItems)
}

// CandidateSubitems reads through a fresh snapshot
func (g *ArtifactGate) CandidateSubitems(itemIDs []string, maxPerItem int) map[string][]models.Subitem {
	return g.Snapshot().CandidateSubitems(itemIDs, maxPerItem)
}

// ItemMeta reads through a fresh snapshot
func (g *ArtifactGate) ItemMeta(itemID string) (models.Item, bool) {
	return g.Snapshot().ItemMeta(itemID)
}

// ArtifactVersion returns the current bundle's artifact version
func (g *ArtifactGate) ArtifactVersion() int {
	return g.store.Bundle().ArtifactVersion
}

// bundleGate is a CandidateSource view over one pinned bundle
type bundleGate struct {
	bundle *ArtifactBundle
}

// Snapshot returns the view itself; it is already pinned
func (g *bundleGate) Snapshot() CandidateSource {
	return g
}

// CandidateItems returns the union of subcategory and category matches,
// sorted lexicographically by item_id so truncation is reproducible.
func (g *bundleGate) CandidateItems(categoryID, subcategoryID string, maxItems int) []string {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	set := make(map[string]bool)
	if subcategoryID != "" {
		for _, id := range g.bundle.ItemsBySubcategory[subcategoryID] {
			set[id] = true
		}
	}
	for _, id := range g.bundle.ItemsByCategory[categoryID] {
		set[id] = true
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > maxItems {
		ids = ids[:maxItems]
	}
	return ids
}

// CandidateSubitems returns up to maxPerItem subitems per item in sequence
// order. Items without subitems map to an empty slice.
func (g *bundleGate) CandidateSubitems(itemIDs []string, maxPerItem int) map[string][]models.Subitem {
	if maxPerItem <= 0 {
		maxPerItem = DefaultMaxPerItem
	}

	result := make(map[string][]models.Subitem, len(itemIDs))
	for _, itemID := range itemIDs {
		subs := g.bundle.SubitemsByItem[itemID]
		if len(subs) > maxPerItem {
			subs = subs[:maxPerItem]
		}
		// Copy so callers can never reach into the bundle's backing array
		out := make([]models.Subitem, len(subs))
		copy(out, subs)
		result[itemID] = out
	}
	return result
}

// ItemMeta returns item metadata from the pinned bundle
func (g *bundleGate) ItemMeta(itemID string) (models.Item, bool) {
	item, ok := g.bundle.ItemsByID[itemID]
	return item, ok
}

// ArtifactVersion returns the pinned bundle's artifact version
func (g *bundleGate) ArtifactVersion() int {
	return g.bundle.ArtifactVersion
}

// StaticGate is the hand-curated fallback candidate source for deployments
// without published artifacts. It satisfies the same contract as the
// artifact gate and is selected explicitly at startup, never via a runtime
// fallback.
type StaticGate struct {
	items          map[string]models.Item
	byCategory     map[string][]string
	bySubcategory  map[string][]string
	subitemsByItem map[string][]models.Subitem
}

// NewStaticGate builds the fixed curation table
func NewStaticGate() *StaticGate {
	items := []models.Item{
		{
			ItemID: "item_d9d95145167f", Title: "Meditations", Author: "Marcus Aurelius",
			CategoryIDs: []string{"philosophy"}, SubcategoryIDs: []string{"stoicism"}, IsPublic: true,
		},
		{
			ItemID: "item_e500fb226315", Title: "The Art of War", Author: "Sun Tzu",
			CategoryIDs: []string{"strategy"}, SubcategoryIDs: []string{"military"}, IsPublic: true,
		},
		{
			ItemID: "item_062ae004ce4a", Title: "The 48 Laws of Power", Author: "Robert Greene",
			CategoryIDs: []string{"strategy", "psychology"}, SubcategoryIDs: []string{"power", "social"}, IsPublic: true,
		},
		{
			ItemID: "item_5e3b6dc26640", Title: "Thinking in Systems", Author: "Donella H. Meadows",
			CategoryIDs: []string{"technology", "economics"}, SubcategoryIDs: []string{"systems"}, IsPublic: true,
		},
		{
			ItemID: "item_aaf47b37c1b4", Title: "The Miracle of Mindfulness", Author: "Thich Nhat Hanh",
			CategoryIDs: []string{"psychology", "philosophy"}, SubcategoryIDs: []string{"mindfulness"}, IsPublic: true,
		},
	}

	g := &StaticGate{
		items:          make(map[string]models.Item, len(items)),
		byCategory:     make(map[string][]string),
		bySubcategory:  make(map[string][]string),
		subitemsByItem: make(map[string][]models.Subitem),
	}

	for _, item := range items {
		g.items[item.ItemID] = item
		for _, id := range item.CategoryIDs {
			g.byCategory[id] = append(g.byCategory[id], item.ItemID)
		}
		for _, id := range item.SubcategoryIDs {
			g.bySubcategory[id] = append(g.bySubcategory[id], item.ItemID)
		}
		// One whole-text subitem per item; the static table has no chapter map
		g.subitemsByItem[item.ItemID] = []models.Subitem{
			{
				SubitemID: "sub_" + item.ItemID,
				ItemID:    item.ItemID,
				Number:    1,
				Title:     "Full Text",
			},
		}
	}

	for id := range g.byCategory {
		sort.Strings(g.byCategory[id])
	}
	for id := range g.bySubcategory {
		sort.Strings(g.bySubcategory[id])
	}

	return g
}

// Snapshot returns the gate itself; the static table never changes
func (g *StaticGate) Snapshot() CandidateSource {
	return g
}

// CandidateItems mirrors the artifact gate's union-and-truncate semantics
func (g *StaticGate) CandidateItems(categoryID, subcategoryID string, maxItems int) []string {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	set := make(map[string]bool)
	if subcategoryID != "" {
		for _, id := range g.bySubcategory[subcategoryID] {
			set[id] = true
		}
	}
	for _, id := range g.byCategory[categoryID] {
		set[id] = true
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > maxItems {
		ids = ids[:maxItems]
	}
	return ids
}

// CandidateSubitems returns the static whole-text subitem per item
func (g *StaticGate) CandidateSubitems(itemIDs []string, maxPerItem int) map[string][]models.Subitem {
	if maxPerItem <= 0 {
		maxPerItem = DefaultMaxPerItem
	}
	result := make(map[string][]models.Subitem, len(itemIDs))
	for _, itemID := range itemIDs {
		subs := g.subitemsByItem[itemID]
		if len(subs) > maxPerItem {
			subs = subs[:maxPerItem]
		}
		out := make([]models.Subitem, len(subs))
		copy(out, subs)
		result[itemID] = out
	}
	return result
}

// ItemMeta returns item metadata from the static table
func (g *StaticGate) ItemMeta(itemID string) (models.Item, bool) {
	item, ok := g.items[itemID]
	return item, ok
}

// ArtifactVersion for the static table is always 1; the cache still keys
// on it so switching strategies cannot resurface stale entries as current.
func (g *StaticGate) ArtifactVersion() int {
	return 1
}

package services

import (
	"fmt"
	"sort"
	"sync/atomic"

	"canon-router/errors"
	"canon-router/models"
)

// ArtifactBundle is one fully loaded, validated, immutable artifact set.
// All lookup maps are built once at load time; nothing here is mutated
// afterwards, so concurrent reads need no locking.
type ArtifactBundle struct {
	Taxonomy     *models.TaxonomyDoc
	ItemIndex    *models.ItemIndexDoc
	SubitemIndex *models.SubitemIndexDoc

	ItemsByID          map[string]models.Item
	SubitemsByItem     map[string][]models.Subitem
	ItemsByCategory    map[string][]string
	ItemsBySubcategory map[string][]string

	ArtifactVersion int
	TaxonomyVersion int
}

// ArtifactStore owns the current bundle and swaps it atomically on reload.
// Readers either see the fully-old or fully-new bundle, never a mix.
type ArtifactStore struct {
	source  ArtifactSource
	current atomic.Pointer[ArtifactBundle]
	logger  Logger
}

// NewArtifactStore loads the latest artifact version and validates every
// cross-reference eagerly. Any failure is an artifact error, fatal at
// startup; it must never be downgraded to a warning.
func NewArtifactStore(source ArtifactSource, logger Logger) (*ArtifactStore, error) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	store := &ArtifactStore{
		source: source,
		logger: logger,
	}

	bundle, err := store.load()
	if err != nil {
		return nil, err
	}
	store.current.Store(bundle)

	logger.Info("artifacts loaded",
		Int("artifact_version", bundle.ArtifactVersion),
		Int("taxonomy_version", bundle.TaxonomyVersion),
		Int("items", len(bundle.ItemsByID)),
		Int("subitems", len(bundle.SubitemIndex.Subitems)),
	)

	return store, nil
}

// Bundle returns the current immutable bundle. Callers must not mutate it.
func (s *ArtifactStore) Bundle() *ArtifactBundle {
	return s.current.Load()
}

// Reload loads the latest published version and swaps it in atomically.
// A failed reload leaves the current bundle untouched.
func (s *ArtifactStore) Reload() error {
	bundle, err := s.load()
	if err != nil {
		return err
	}

	old := s.current.Swap(bundle)
	if old != nil && old.ArtifactVersion != bundle.ArtifactVersion {
		s.logger.Info("artifacts reloaded",
			Int("old_version", old.ArtifactVersion),
			Int("new_version", bundle.ArtifactVersion),
		)
	}
	return nil
}

// load reads and validates one complete bundle
func (s *ArtifactStore) load() (*ArtifactBundle, error) {
	version, err := s.source.LatestVersion()
	if err != nil {
		return nil, err
	}

	taxonomy, err := s.source.LoadTaxonomy()
	if err != nil {
		return nil, err
	}
	itemIndex, err := s.source.LoadItemIndex(version)
	if err != nil {
		return nil, err
	}
	subitemIndex, err := s.source.LoadSubitemIndex(version)
	if err != nil {
		return nil, err
	}

	if err := validateTaxonomy(taxonomy); err != nil {
		return nil, err
	}
	if err := validateItemIndex(itemIndex, taxonomy); err != nil {
		return nil, err
	}
	if err := validateSubitemIndex(subitemIndex, itemIndex); err != nil {
		return nil, err
	}

	return buildBundle(taxonomy, itemIndex, subitemIndex, version), nil
}

// Stats reports artifact statistics for the admin surface
func (s *ArtifactStore) Stats() models.EngineStats {
	b := s.Bundle()

	byCategory := make(map[string]int, len(b.ItemsByCategory))
	for categoryID, itemIDs := range b.ItemsByCategory {
		byCategory[categoryID] = len(itemIDs)
	}

	return models.EngineStats{
		ArtifactVersion: b.ArtifactVersion,
		TaxonomyVersion: b.TaxonomyVersion,
		TotalCategories: len(b.Taxonomy.Categories),
		TotalItems:      len(b.ItemsByID),
		TotalSubitems:   len(b.SubitemIndex.Subitems),
		ItemsByCategory: byCategory,
	}
}

func validateTaxonomy(doc *models.TaxonomyDoc) error {
	if doc.Version <= 0 {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("taxonomy version must be positive, got %d", doc.Version), nil)
	}
	if len(doc.Categories) == 0 {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			"taxonomy has no categories", nil)
	}

	seenCategories := make(map[string]bool, len(doc.Categories))
	for _, cat := range doc.Categories {
		if cat.ID == "" || cat.Name == "" {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				"taxonomy category with empty id or name", nil)
		}
		if seenCategories[cat.ID] {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				fmt.Sprintf("duplicate category id %q", cat.ID), nil)
		}
		seenCategories[cat.ID] = true

		seenSubs := make(map[string]bool, len(cat.Subcategories))
		for _, sub := range cat.Subcategories {
			if sub.ID == "" || sub.Name == "" {
				return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
					fmt.Sprintf("subcategory with empty id or name under category %q", cat.ID), nil)
			}
			if seenSubs[sub.ID] {
				return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
					fmt.Sprintf("duplicate subcategory id %q under category %q", sub.ID, cat.ID), nil)
			}
			seenSubs[sub.ID] = true
		}
	}
	return nil
}

func validateItemIndex(doc *models.ItemIndexDoc, taxonomy *models.TaxonomyDoc) error {
	if doc.Version <= 0 {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("item index version must be positive, got %d", doc.Version), nil)
	}
	if doc.TotalItems != len(doc.Items) {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("item index total_items=%d but document carries %d items",
				doc.TotalItems, len(doc.Items)), nil)
	}

	categoryIDs := make(map[string]bool)
	subcategoryIDs := make(map[string]bool)
	for _, cat := range taxonomy.Categories {
		categoryIDs[cat.ID] = true
		for _, sub := range cat.Subcategories {
			subcategoryIDs[sub.ID] = true
		}
	}

	seen := make(map[string]bool, len(doc.Items))
	for _, item := range doc.Items {
		if item.ItemID == "" || item.Title == "" {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				"item with empty item_id or title", nil)
		}
		if seen[item.ItemID] {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				fmt.Sprintf("duplicate item_id %q", item.ItemID), nil)
		}
		seen[item.ItemID] = true

		for _, id := range item.CategoryIDs {
			if !categoryIDs[id] {
				return errors.NewArtifactError(errors.ErrCodeDanglingReference,
					fmt.Sprintf("item %q references unknown category %q", item.ItemID, id), nil)
			}
		}
		for _, id := range item.SubcategoryIDs {
			if !subcategoryIDs[id] {
				return errors.NewArtifactError(errors.ErrCodeDanglingReference,
					fmt.Sprintf("item %q references unknown subcategory %q", item.ItemID, id), nil)
			}
		}
	}
	return nil
}

func validateSubitemIndex(doc *models.SubitemIndexDoc, itemIndex *models.ItemIndexDoc) error {
	if doc.Version != itemIndex.Version {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("subitem index version %d does not match item index version %d",
				doc.Version, itemIndex.Version), nil)
	}
	if doc.TotalSubitems != len(doc.Subitems) {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("subitem index total_subitems=%d but document carries %d subitems",
				doc.TotalSubitems, len(doc.Subitems)), nil)
	}

	itemIDs := make(map[string]bool, len(itemIndex.Items))
	for _, item := range itemIndex.Items {
		itemIDs[item.ItemID] = true
	}

	numbersByItem := make(map[string][]int)
	seen := make(map[string]bool, len(doc.Subitems))
	for _, sub := range doc.Subitems {
		if sub.SubitemID == "" {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				"subitem with empty subitem_id", nil)
		}
		if seen[sub.SubitemID] {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				fmt.Sprintf("duplicate subitem_id %q", sub.SubitemID), nil)
		}
		seen[sub.SubitemID] = true

		if !itemIDs[sub.ItemID] {
			return errors.NewArtifactError(errors.ErrCodeDanglingReference,
				fmt.Sprintf("subitem %q references unknown item %q", sub.SubitemID, sub.ItemID), nil)
		}
		if sub.EndOffset < sub.StartOffset {
			return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
				fmt.Sprintf("subitem %q has inverted offset range", sub.SubitemID), nil)
		}
		numbersByItem[sub.ItemID] = append(numbersByItem[sub.ItemID], sub.Number)
	}

	// Sequence numbers must be unique per item and contiguous from 1
	for itemID, numbers := range numbersByItem {
		sort.Ints(numbers)
		for i, n := range numbers {
			if n != i+1 {
				return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
					fmt.Sprintf("item %q subitem numbers are not contiguous from 1", itemID), nil)
			}
		}
	}
	return nil
}

func buildBundle(
	taxonomy *models.TaxonomyDoc,
	itemIndex *models.ItemIndexDoc,
	subitemIndex *models.SubitemIndexDoc,
	version int,
) *ArtifactBundle {
	bundle := &ArtifactBundle{
		Taxonomy:           taxonomy,
		ItemIndex:          itemIndex,
		SubitemIndex:       subitemIndex,
		ItemsByID:          make(map[string]models.Item, len(itemIndex.Items)),
		SubitemsByItem:     make(map[string][]models.Subitem),
		ItemsByCategory:    make(map[string][]string),
		ItemsBySubcategory: make(map[string][]string),
		ArtifactVersion:    version,
		TaxonomyVersion:    taxonomy.Version,
	}

	for _, item := range itemIndex.Items {
		bundle.ItemsByID[item.ItemID] = item
		for _, id := range item.CategoryIDs {
			bundle.ItemsByCategory[id] = append(bundle.ItemsByCategory[id], item.ItemID)
		}
		for _, id := range item.SubcategoryIDs {
			bundle.ItemsBySubcategory[id] = append(bundle.ItemsBySubcategory[id], item.ItemID)
		}
	}

	for _, sub := range subitemIndex.Subitems {
		bundle.SubitemsByItem[sub.ItemID] = append(bundle.SubitemsByItem[sub.ItemID], sub)
	}
	for itemID := range bundle.SubitemsByItem {
		subs := bundle.SubitemsByItem[itemID]
		sort.Slice(subs, func(i, j int) bool { return subs[i].Number < subs[j].Number })
	}

	// Deterministic ordering inside the category maps keeps candidate
	// truncation reproducible across loads.
	for id := range bundle.ItemsByCategory {
		sort.Strings(bundle.ItemsByCategory[id])
	}
	for id := range bundle.ItemsBySubcategory {
		sort.Strings(bundle.ItemsBySubcategory[id])
	}

	return bundle
}

package models

// Versioned artifact documents produced by the offline builder and loaded
// read-only at runtime. Field sets are fixed; loaders reject documents that
// do not satisfy them rather than tolerating partial records.

// TaxonomyDoc is the curated category -> subcategory -> concept tree.
// Version is bumped only on manual curation changes, independent of the
// item/subitem index version.
type TaxonomyDoc struct {
	Version    int        `json:"version"`
	Categories []Category `json:"categories"`
}

// Category is a top-level taxonomy node
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Subcategory is a second-level taxonomy node
type Subcategory struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Concepts []string `json:"concepts,omitempty"`
}

// ItemIndexDoc is the versioned index of routable items
type ItemIndexDoc struct {
	Version    int    `json:"version"`
	TotalItems int    `json:"total_items"`
	Items      []Item `json:"items"`
}

// Item is one routable content item. Every category/subcategory ID
// referenced here must exist in the current taxonomy.
type Item struct {
	ItemID         string   `json:"item_id"`
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	CategoryIDs    []string `json:"category_ids"`
	SubcategoryIDs []string `json:"subcategory_ids"`
	IsPublic       bool     `json:"is_public"`
	CreatedAt      string   `json:"created_at"`
}

// SubitemIndexDoc is the versioned index of sub-items (chapters)
type SubitemIndexDoc struct {
	Version       int       `json:"version"`
	TotalSubitems int       `json:"total_subitems"`
	Subitems      []Subitem `json:"subitems"`
}

// Subitem is one addressable region inside an item. Numbers are unique per
// item and contiguous from 1; offsets index into the item's content.
type Subitem struct {
	SubitemID   string   `json:"subitem_id"`
	ItemID      string   `json:"item_id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	WordCount   int      `json:"word_count"`
	Headings    []string `json:"headings,omitempty"`
}

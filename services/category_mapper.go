package services

import (
	"fmt"

	"canon-router/errors"
)

// CategoryMapper translates between human-facing category names and the
// stable lowercase identifiers the gate operates on. The canonical tables
// are injective so that ToNames is a true inverse of ToIDs; many-to-one
// aliases live in separate forward-only tables.
type CategoryMapper struct {
	categoryNameToID map[string]string
	categoryIDToName map[string]string

	subcategoryNameToID map[string]string
	subcategoryIDToName map[string]string

	categoryAliases    map[string]string
	subcategoryAliases map[string]string
}

// NewCategoryMapper builds the fixed translation table. The mapping is
// static curation data, not learned, and never fuzzy: unknown names fail
// outright rather than partially matching.
func NewCategoryMapper() *CategoryMapper {
	categories := map[string]string{
		"Philosophy": "philosophy",
		"Strategy":   "strategy",
		"Psychology": "psychology",
		"Technology": "technology",
		"Economics":  "economics",
		"Business":   "business",
		"History":    "history",
		"Literature": "literature",
		"Science":    "science",
		"Security":   "security",
	}

	subcategories := map[string]string{
		"Stoicism":             "stoicism",
		"Ethics":               "ethics",
		"Existentialism":       "existentialism",
		"Military Strategy":    "military",
		"Power Dynamics":       "power",
		"Negotiation":          "negotiation",
		"Systems Thinking":     "systems",
		"Software Engineering": "software",
		"Security":             "security",
		"Mindfulness":          "mindfulness",
		"Cognitive Science":    "cognitive",
		"Social Psychology":    "social",
		"Behavioral Economics": "behavioral",
		"Microeconomics":       "micro",
		"Macroeconomics":       "macro",
		"Management":           "management",
		"Entrepreneurship":     "entrepreneurship",
	}

	m := &CategoryMapper{
		categoryNameToID:    categories,
		categoryIDToName:    make(map[string]string, len(categories)),
		subcategoryNameToID: subcategories,
		subcategoryIDToName: make(map[string]string, len(subcategories)),
		categoryAliases: map[string]string{
			"Self-Improvement": "Psychology",
		},
		subcategoryAliases: map[string]string{
			"Epistemology":         "Ethics",
			"Metaphysics":          "Ethics",
			"Game Theory":          "Negotiation",
			"Decision Making":      "Negotiation",
			"Leadership":           "Management",
			"Productivity":         "Management",
			"Habits":               "Mindfulness",
			"Databases":            "Software Engineering",
			"Political Economy":    "Macroeconomics",
			"Political Philosophy": "Power Dynamics",
		},
	}

	// Inverting the injective canonical tables guarantees the round-trip law
	for name, id := range categories {
		m.categoryIDToName[id] = name
	}
	for name, id := range subcategories {
		m.subcategoryIDToName[id] = name
	}

	return m
}

// ToIDs resolves category and subcategory names to stable identifiers.
// The subcategory is optional; an empty name yields an empty ID.
func (m *CategoryMapper) ToIDs(categoryName, subcategoryName string) (string, string, error) {
	categoryName = m.resolveCategoryAlias(categoryName)
	categoryID, ok := m.categoryNameToID[categoryName]
	if !ok {
		return "", "", errors.NewValidationError(errors.ErrCodeUnknownCategory,
			fmt.Sprintf("unknown category %q", categoryName), nil)
	}

	if subcategoryName == "" {
		return categoryID, "", nil
	}

	subcategoryName = m.resolveSubcategoryAlias(subcategoryName)
	subcategoryID, ok := m.subcategoryNameToID[subcategoryName]
	if !ok {
		return "", "", errors.NewValidationError(errors.ErrCodeUnknownSubcategory,
			fmt.Sprintf("unknown subcategory %q", subcategoryName), nil)
	}

	return categoryID, subcategoryID, nil
}

// ToNames is the inverse of ToIDs over canonical names
func (m *CategoryMapper) ToNames(categoryID, subcategoryID string) (string, string, error) {
	categoryName, ok := m.categoryIDToName[categoryID]
	if !ok {
		return "", "", errors.NewValidationError(errors.ErrCodeUnknownCategory,
			fmt.Sprintf("unknown category id %q", categoryID), nil)
	}

	if subcategoryID == "" {
		return categoryName, "", nil
	}

	subcategoryName, ok := m.subcategoryIDToName[subcategoryID]
	if !ok {
		return "", "", errors.NewValidationError(errors.ErrCodeUnknownSubcategory,
			fmt.Sprintf("unknown subcategory id %q", subcategoryID), nil)
	}

	return categoryName, subcategoryName, nil
}

// CategoryNames returns every canonical category name
func (m *CategoryMapper) CategoryNames() []string {
	names := make([]string, 0, len(m.categoryNameToID))
	for name := range m.categoryNameToID {
		names = append(names, name)
	}
	return names
}

// SubcategoryNames returns every canonical subcategory name
func (m *CategoryMapper) SubcategoryNames() []string {
	names := make([]string, 0, len(m.subcategoryNameToID))
	for name := range m.subcategoryNameToID {
		names = append(names, name)
	}
	return names
}

func (m *CategoryMapper) resolveCategoryAlias(name string) string {
	if canonical, ok := m.categoryAliases[name]; ok {
		return canonical
	}
	return name
}

func (m *CategoryMapper) resolveSubcategoryAlias(name string) string {
	if canonical, ok := m.subcategoryAliases[name]; ok {
		return canonical
	}
	return name
}

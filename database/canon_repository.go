package database

import (
	"context"
	"encoding/json"

	"canon-router/errors"
	"canon-router/models"
)

// CanonRepository reads the canonical content store the offline builder
// indexes from. The runtime engine never touches these tables; it only
// consumes the artifact documents the builder emits.
type CanonRepository struct {
	pg *PostgresService
}

// NewCanonRepository creates a repository over the canonical store
func NewCanonRepository(pg *PostgresService) *CanonRepository {
	return &CanonRepository{pg: pg}
}

// ListItems returns all items ordered by title then id, so repeated builds
// over unchanged content emit identical documents
func (r *CanonRepository) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := r.pg.db.QueryContext(ctx, `
		SELECT id, title, author, category_ids, subcategory_ids, is_public, created_at
		FROM items
		ORDER BY title, id`)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to list items", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		var categoryIDs, subcategoryIDs []byte
		if err := rows.Scan(&item.ItemID, &item.Title, &item.Author,
			&categoryIDs, &subcategoryIDs, &item.IsPublic, &item.CreatedAt); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
				"failed to scan item row", err)
		}
		if err := json.Unmarshal(categoryIDs, &item.CategoryIDs); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
				"malformed category_ids for item "+item.ItemID, err)
		}
		if err := json.Unmarshal(subcategoryIDs, &item.SubcategoryIDs); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
				"malformed subcategory_ids for item "+item.ItemID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"item iteration failed", err)
	}
	return items, nil
}

// ListSubitems returns all subitems ordered by item then sequence number
func (r *CanonRepository) ListSubitems(ctx context.Context) ([]models.Subitem, error) {
	rows, err := r.pg.db.QueryContext(ctx, `
		SELECT id, item_id, number, title, start_offset, end_offset
		FROM subitems
		ORDER BY item_id, number`)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to list subitems", err)
	}
	defer rows.Close()

	var subitems []models.Subitem
	for rows.Next() {
		var sub models.Subitem
		if err := rows.Scan(&sub.SubitemID, &sub.ItemID, &sub.Number,
			&sub.Title, &sub.StartOffset, &sub.EndOffset); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
				"failed to scan subitem row", err)
		}
		// Rough size metric; the canon store does not track word counts
		sub.WordCount = (sub.EndOffset - sub.StartOffset) / 6
		subitems = append(subitems, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"subitem iteration failed", err)
	}
	return subitems, nil
}

// PublishArtifacts stores a freshly built index pair under one version in
// a single transaction, so a half-published version is never visible
func (r *CanonRepository) PublishArtifacts(ctx context.Context, itemIndex *models.ItemIndexDoc, subitemIndex *models.SubitemIndexDoc) error {
	itemDoc, err := json.Marshal(itemIndex)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSerializationError,
			"failed to marshal item index", err)
	}
	subitemDoc, err := json.Marshal(subitemIndex)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSerializationError,
			"failed to marshal subitem index", err)
	}

	tx, err := r.pg.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to begin publish transaction", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO artifacts (kind, version, document) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insert, kindItemIndex, itemIndex.Version, itemDoc); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to publish item index", err)
	}
	if _, err := tx.ExecContext(ctx, insert, kindSubitemIndex, subitemIndex.Version, subitemDoc); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to publish subitem index", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to commit publish transaction", err)
	}
	return nil
}

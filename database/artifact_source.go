package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"canon-router/errors"
	"canon-router/models"
)

// Artifact document kinds as stored in the artifacts table
const (
	kindTaxonomy     = "taxonomy"
	kindItemIndex    = "item_index"
	kindSubitemIndex = "subitem_index"
)

// PostgresArtifactSource loads versioned artifact documents from the
// artifacts table:
//
//	CREATE TABLE artifacts (
//	    kind       TEXT    NOT NULL,
//	    version    INTEGER NOT NULL,
//	    document   JSONB   NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (kind, version)
//	);
//
// The offline builder inserts; the runtime only reads.
type PostgresArtifactSource struct {
	pg *PostgresService
}

// NewPostgresArtifactSource creates a postgres-backed artifact source
func NewPostgresArtifactSource(pg *PostgresService) *PostgresArtifactSource {
	return &PostgresArtifactSource{pg: pg}
}

// LatestVersion returns the highest published item index version
func (s *PostgresArtifactSource) LatestVersion() (int, error) {
	var version sql.NullInt64
	err := s.pg.db.QueryRow(
		`SELECT MAX(version) FROM artifacts WHERE kind = $1`, kindItemIndex,
	).Scan(&version)
	if err != nil {
		return 0, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			"failed to query latest artifact version", err)
	}
	if !version.Valid || version.Int64 == 0 {
		return 0, errors.NewArtifactError(errors.ErrCodeArtifactNotFound,
			"no item index artifacts published", nil)
	}
	return int(version.Int64), nil
}

// LoadTaxonomy loads the latest taxonomy document
func (s *PostgresArtifactSource) LoadTaxonomy() (*models.TaxonomyDoc, error) {
	var doc models.TaxonomyDoc
	if err := s.loadLatest(kindTaxonomy, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadItemIndex loads the item index document at the given version
func (s *PostgresArtifactSource) LoadItemIndex(version int) (*models.ItemIndexDoc, error) {
	var doc models.ItemIndexDoc
	if err := s.loadVersion(kindItemIndex, version, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadSubitemIndex loads the sub-item index document at the given version
func (s *PostgresArtifactSource) LoadSubitemIndex(version int) (*models.SubitemIndexDoc, error) {
	var doc models.SubitemIndexDoc
	if err := s.loadVersion(kindSubitemIndex, version, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *PostgresArtifactSource) loadLatest(kind string, dest interface{}) error {
	var raw []byte
	err := s.pg.db.QueryRow(
		`SELECT document FROM artifacts WHERE kind = $1 ORDER BY version DESC LIMIT 1`, kind,
	).Scan(&raw)
	return s.decode(kind, raw, err, dest)
}

func (s *PostgresArtifactSource) loadVersion(kind string, version int, dest interface{}) error {
	var raw []byte
	err := s.pg.db.QueryRow(
		`SELECT document FROM artifacts WHERE kind = $1 AND version = $2`, kind, version,
	).Scan(&raw)
	return s.decode(kind, raw, err, dest)
}

func (s *PostgresArtifactSource) decode(kind string, raw []byte, err error, dest interface{}) error {
	if err == sql.ErrNoRows {
		return errors.NewArtifactError(errors.ErrCodeArtifactNotFound,
			fmt.Sprintf("artifact %q not found", kind), err)
	}
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery,
			fmt.Sprintf("failed to load artifact %q", kind), err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("malformed artifact %q", kind), err)
	}
	return nil
}

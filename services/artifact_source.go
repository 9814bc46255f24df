package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"canon-router/errors"
	"canon-router/models"
)

// Artifact file naming. The taxonomy is versioned independently of the
// indices and is republished under its own version suffix.
const (
	taxonomyFilename      = "taxonomy.v1.json"
	itemIndexPattern      = "item_index.v*.json"
	itemIndexFormat       = "item_index.v%d.json"
	subitemIndexFormat    = "subitem_index.v%d.json"
	itemIndexVersionSplit = ".v"
)

// FileArtifactSource reads versioned artifact documents from a directory
type FileArtifactSource struct {
	dir string
}

// NewFileArtifactSource creates a file-backed artifact source
func NewFileArtifactSource(dir string) *FileArtifactSource {
	return &FileArtifactSource{dir: dir}
}

// LatestVersion scans the directory for the highest item index version
func (s *FileArtifactSource) LatestVersion() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, itemIndexPattern))
	if err != nil {
		return 0, errors.NewArtifactError(errors.ErrCodeArtifactNotFound,
			fmt.Sprintf("failed to scan artifact directory %s", s.dir), err)
	}

	latest := 0
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".json")
		parts := strings.SplitN(stem, itemIndexVersionSplit, 2)
		if len(parts) != 2 {
			continue
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		if v > latest {
			latest = v
		}
	}

	if latest == 0 {
		return 0, errors.NewArtifactError(errors.ErrCodeArtifactNotFound,
			fmt.Sprintf("no item index artifacts found in %s", s.dir), nil)
	}
	return latest, nil
}

// LoadTaxonomy loads and decodes the taxonomy document
func (s *FileArtifactSource) LoadTaxonomy() (*models.TaxonomyDoc, error) {
	var doc models.TaxonomyDoc
	if err := s.readDocument(taxonomyFilename, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadItemIndex loads and decodes the item index at the given version
func (s *FileArtifactSource) LoadItemIndex(version int) (*models.ItemIndexDoc, error) {
	var doc models.ItemIndexDoc
	if err := s.readDocument(fmt.Sprintf(itemIndexFormat, version), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadSubitemIndex loads and decodes the sub-item index at the given version
func (s *FileArtifactSource) LoadSubitemIndex(version int) (*models.SubitemIndexDoc, error) {
	var doc models.SubitemIndexDoc
	if err := s.readDocument(fmt.Sprintf(subitemIndexFormat, version), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// readDocument reads one artifact file with strict field checking. Unknown
// fields are rejected so schema drift surfaces at load time, not mid-query.
func (s *FileArtifactSource) readDocument(name string, dest interface{}) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewArtifactError(errors.ErrCodeArtifactNotFound,
				fmt.Sprintf("artifact not found: %s", path), err)
		}
		return errors.NewArtifactError(errors.ErrCodeArtifactNotFound,
			fmt.Sprintf("failed to read artifact %s", path), err)
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errors.NewArtifactError(errors.ErrCodeArtifactSchema,
			fmt.Sprintf("malformed artifact %s", path), err)
	}
	return nil
}

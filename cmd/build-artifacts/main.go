// Command build-artifacts reads the canonical content store and emits a
// new item/subitem index pair under the next artifact version. Rebuilding
// without content changes produces documents identical except for the
// version field. The runtime engine never writes artifacts; this command
// is the only producer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"canon-router/config"
	"canon-router/database"
	"canon-router/errors"
	"canon-router/models"
	"canon-router/services"
)

// canonStore is the slice of the canonical database the builder needs
type canonStore interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	ListSubitems(ctx context.Context) ([]models.Subitem, error)
	PublishArtifacts(ctx context.Context, itemIndex *models.ItemIndexDoc, subitemIndex *models.SubitemIndexDoc) error
}

// versionFunc reports the highest version already published at the target
type versionFunc func() (int, error)

func main() {
	publishToDB := flag.Bool("publish-db", false, "publish to the artifacts table instead of files")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg := config.LoadConfig()

	pg, err := database.NewPostgresService(&cfg.Database)
	if err != nil {
		log.Fatalf("Artifact build failed: %v", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := database.NewCanonRepository(pg)
	latest := fileVersion(cfg.Artifacts.Dir)
	if *publishToDB {
		latest = dbVersion(pg)
	}

	if err := run(ctx, repo, latest, cfg.Artifacts.Dir, *publishToDB); err != nil {
		log.Fatalf("Artifact build failed: %v", err)
	}
}

func run(ctx context.Context, store canonStore, latest versionFunc, dir string, publishToDB bool) error {
	items, err := store.ListItems(ctx)
	if err != nil {
		return err
	}
	subitems, err := store.ListSubitems(ctx)
	if err != nil {
		return err
	}

	version, err := nextVersion(latest)
	if err != nil {
		return err
	}

	itemIndex, subitemIndex := buildIndexes(version, items, subitems)

	if publishToDB {
		if err := store.PublishArtifacts(ctx, itemIndex, subitemIndex); err != nil {
			return err
		}
		log.Printf("Published artifact version %d (%d items, %d subitems) to database",
			version, len(items), len(subitems))
		return nil
	}

	if err := writeDocument(dir, fmt.Sprintf("item_index.v%d.json", version), itemIndex); err != nil {
		return err
	}
	if err := writeDocument(dir, fmt.Sprintf("subitem_index.v%d.json", version), subitemIndex); err != nil {
		return err
	}

	log.Printf("Wrote artifact version %d (%d items, %d subitems) to %s",
		version, len(items), len(subitems), dir)
	return nil
}

// buildIndexes assembles one index pair. The input ordering is preserved
// as-is (the repository orders deterministically), so two builds over the
// same content differ only in the version field.
func buildIndexes(version int, items []models.Item, subitems []models.Subitem) (*models.ItemIndexDoc, *models.SubitemIndexDoc) {
	itemIndex := &models.ItemIndexDoc{
		Version:    version,
		TotalItems: len(items),
		Items:      items,
	}
	subitemIndex := &models.SubitemIndexDoc{
		Version:       version,
		TotalSubitems: len(subitems),
		Subitems:      subitems,
	}
	return itemIndex, subitemIndex
}

// nextVersion increments the highest published version. A store with no
// artifacts yet starts at version 1.
func nextVersion(latest versionFunc) (int, error) {
	v, err := latest()
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeArtifactNotFound {
			return 1, nil
		}
		return 0, err
	}
	return v + 1, nil
}

func fileVersion(dir string) versionFunc {
	return services.NewFileArtifactSource(dir).LatestVersion
}

func dbVersion(pg *database.PostgresService) versionFunc {
	return database.NewPostgresArtifactSource(pg).LatestVersion
}

// writeDocument writes one artifact file with stable, human-inspectable
// formatting
func writeDocument(dir, name string, doc interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

package services

import (
	"fmt"

	"canon-router/config"
	"canon-router/database"
)

// ServiceContainer holds all engine services wired for one process
type ServiceContainer struct {
	Engine   *RoutingEngine
	Store    *ArtifactStore // nil when the static gate is selected
	Gate     CandidateSource
	Cache    *RoutingCache
	Health   *HealthService
	Logger   Logger
	Postgres *database.PostgresService // nil for the file source
}

// ServiceFactory creates and configures all services
type ServiceFactory struct {
	config *config.Config
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config) *ServiceFactory {
	return &ServiceFactory{config: cfg}
}

// CreateServices builds the service graph. Strategy choices (artifact
// source, candidate gate, recommender provider) are made exactly once
// here, from configuration; a missing or broken artifact set is a fatal
// error, never a silent fallback to the static table.
func (f *ServiceFactory) CreateServices() (*ServiceContainer, error) {
	logger := NewStructuredLogger(ParseLogLevel(f.config.Logging.Level), nil)

	container := &ServiceContainer{Logger: logger}

	var gate CandidateSource
	switch f.config.Artifacts.Gate {
	case "artifact":
		source, pg, err := f.createArtifactSource()
		if err != nil {
			return nil, err
		}
		container.Postgres = pg

		store, err := NewArtifactStore(source, logger)
		if err != nil {
			return nil, err
		}
		container.Store = store
		gate = NewArtifactGate(store)
	case "static":
		logger.Info("using static candidate gate")
		gate = NewStaticGate()
	default:
		return nil, fmt.Errorf("unknown candidate gate %q", f.config.Artifacts.Gate)
	}
	container.Gate = gate

	cache := NewRoutingCache(
		f.config.Cache.SuccessTTL,
		f.config.Cache.RefusalTTL,
		f.config.Cache.MaxSize,
		f.config.Cache.CleanupInterval,
		nil,
	)
	container.Cache = cache

	recommender, err := f.createRecommender(logger)
	if err != nil {
		return nil, err
	}

	validator := NewRecommendationValidator(logger)
	container.Engine = NewRoutingEngine(
		NewCategoryMapper(),
		gate,
		cache,
		recommender,
		validator,
		logger,
		f.config.Recommender.Timeout,
	)
	container.Health = NewHealthService(gate, cache)

	return container, nil
}

// createArtifactSource selects the configured artifact source
func (f *ServiceFactory) createArtifactSource() (ArtifactSource, *database.PostgresService, error) {
	switch f.config.Artifacts.Source {
	case "file":
		return NewFileArtifactSource(f.config.Artifacts.Dir), nil, nil
	case "postgres":
		pg, err := database.NewPostgresService(&f.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return database.NewPostgresArtifactSource(pg), pg, nil
	default:
		return nil, nil, fmt.Errorf("unknown artifact source %q", f.config.Artifacts.Source)
	}
}

// createRecommender selects the configured recommender provider
func (f *ServiceFactory) createRecommender(logger Logger) (Recommender, error) {
	switch f.config.Recommender.Provider {
	case "openai":
		return NewOpenAIRecommender(&f.config.Recommender, logger)
	case "mock":
		logger.Info("using mock recommender")
		return NewMockRecommender(), nil
	default:
		return nil, fmt.Errorf("unknown recommender provider %q", f.config.Recommender.Provider)
	}
}

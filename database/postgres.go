package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"canon-router/config"
	"canon-router/errors"
)

// PostgresService wraps a pooled connection to the canon database
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService opens and verifies a PostgreSQL connection
func NewPostgresService(cfg *config.DatabaseConfig) (*PostgresService, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseConnection,
			"failed to open postgres connection", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseConnection,
			"failed to ping postgres", err)
	}

	return &PostgresService{db: db}, nil
}

// DB exposes the underlying handle for repository types
func (s *PostgresService) DB() *sql.DB {
	return s.db
}

// HealthCheck verifies the connection is alive
func (s *PostgresService) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseConnection,
			"postgres health check failed", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresService) Close() error {
	return s.db.Close()
}

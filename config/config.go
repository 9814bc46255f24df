package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Artifacts   ArtifactsConfig   `yaml:"artifacts"`
	Database    DatabaseConfig    `yaml:"database"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ArtifactsConfig selects the artifact source and the candidate gate
// strategy. Both choices are made once at startup; there is no runtime
// fallback between strategies.
type ArtifactsConfig struct {
	// Source is "file" or "postgres"
	Source string `yaml:"source"`
	// Dir holds the versioned artifact documents for the file source
	Dir string `yaml:"dir"`
	// Gate is "artifact" or "static"
	Gate string `yaml:"gate"`
}

// DatabaseConfig holds PostgreSQL configuration for the postgres artifact
// source and the offline builder
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
}

// RecommenderConfig holds recommender collaborator configuration
type RecommenderConfig struct {
	// Provider is "openai" or "mock"
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
}

// CacheConfig holds routing cache configuration
type CacheConfig struct {
	MaxSize         int           `yaml:"max_size"`
	SuccessTTL      time.Duration `yaml:"success_ttl"`
	RefusalTTL      time.Duration `yaml:"refusal_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Artifacts: ArtifactsConfig{
			Source: getEnv("ARTIFACT_SOURCE", "file"),
			Dir:    getEnv("ARTIFACT_DIR", "artifacts"),
			Gate:   getEnv("CANDIDATE_GATE", "artifact"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			Database: getEnv("DB_NAME", "canon"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "prefer"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 10),
		},
		Recommender: RecommenderConfig{
			Provider:    getEnv("RECOMMENDER_PROVIDER", "mock"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:     getDurationEnv("RECOMMENDER_TIMEOUT", 30*time.Second),
			MaxRetries:  getIntEnv("RECOMMENDER_MAX_RETRIES", 3),
			Temperature: getFloatEnv("RECOMMENDER_TEMPERATURE", 0.3),
		},
		Cache: CacheConfig{
			MaxSize:         getIntEnv("CACHE_MAX_SIZE", 1000),
			SuccessTTL:      getDurationEnv("CACHE_SUCCESS_TTL", time.Hour),
			RefusalTTL:      getDurationEnv("CACHE_REFUSAL_TTL", 5*time.Minute),
			CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// LoadConfigFile overlays values from a YAML file onto cfg. Environment
// variables win for fields the file leaves zero because the file is
// unmarshaled over the env-derived config.
func (c *Config) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.Artifacts.Source {
	case "file":
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("ARTIFACT_DIR is required for the file artifact source")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database host and name are required for the postgres artifact source")
		}
	default:
		return fmt.Errorf("unknown artifact source %q (want \"file\" or \"postgres\")", c.Artifacts.Source)
	}

	switch c.Artifacts.Gate {
	case "artifact", "static":
	default:
		return fmt.Errorf("unknown candidate gate %q (want \"artifact\" or \"static\")", c.Artifacts.Gate)
	}

	switch c.Recommender.Provider {
	case "openai":
		if c.Recommender.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai recommender")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown recommender provider %q (want \"openai\" or \"mock\")", c.Recommender.Provider)
	}

	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.SuccessTTL <= 0 || c.Cache.RefusalTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Recommender.Timeout <= 0 {
		return fmt.Errorf("recommender timeout must be positive")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable with a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable with a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable with a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

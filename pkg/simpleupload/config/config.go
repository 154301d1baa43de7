package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Database kinds
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseMongo    = "mongo"
)

// Storage kinds
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
	StorageMinio  = "minio"
)

// MinOrphanAge is the smallest RECONCILE_MIN_AGE accepted when orphans are
// removed. Younger files may belong to a create or update still in flight.
const MinOrphanAge = time.Minute

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// ServerConfig represents configuration for one upload service process
type ServerConfig struct {
	Port string `env:"PORT" env-default:"3000"`

	// Database configuration
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURL      string `env:"MONGODB_URL"`
	MongoDatabase string `env:"MONGODB_DATABASE" env-default:"simple_upload"`

	// Storage configuration
	StorageURL         string `env:"STORAGE_URL" env-default:"file://uploads"`
	MinioAccessKey     string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey     string `env:"MINIO_SECRET_KEY"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-1"`

	// Record cache
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"5m"`

	// Lifecycle events
	NatsURL    string `env:"NATS_URL"`
	NatsStream string `env:"NATS_STREAM" env-default:"UPLOADS"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Reconciliation
	ReconcileInterval      time.Duration `env:"RECONCILE_INTERVAL" env-default:"0s"`
	ReconcileMinAge        time.Duration `env:"RECONCILE_MIN_AGE" env-default:"10m"`
	ReconcileRemoveOrphans bool          `env:"RECONCILE_REMOVE_ORPHANS" env-default:"false"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Load constructs a ServerConfig by applying the supplied options on top of defaults.
// WithEnv resets unset variables to their defaults, so pass it before
// programmatic overrides.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.MongoURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "3000",
		MongoDatabase:   "simple_upload",
		StorageURL:      "file://uploads",
		AWSRegion:       "us-east-1",
		CacheTTL:        5 * time.Minute,
		NatsStream:      "UPLOADS",
		ReconcileMinAge: 10 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if _, err := c.DatabaseKind(); err != nil {
		return err
	}
	if _, err := c.StorageKind(); err != nil {
		return err
	}
	if c.CacheTTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if c.ReconcileInterval < 0 || c.ReconcileMinAge < 0 {
		return errors.New("reconcile durations must not be negative")
	}
	if c.ReconcileRemoveOrphans && c.ReconcileMinAge < MinOrphanAge {
		return fmt.Errorf("RECONCILE_MIN_AGE must be at least %s when RECONCILE_REMOVE_ORPHANS is set", MinOrphanAge)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// DatabaseKind detects the database from DATABASE_URL
func (c *ServerConfig) DatabaseKind() (string, error) {
	u := c.DatabaseURL
	switch {
	case u == "memory" || u == "memory://":
		return DatabaseMemory, nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DatabasePostgres, nil
	case strings.HasPrefix(u, "mongodb://"), strings.HasPrefix(u, "mongodb+srv://"):
		return DatabaseMongo, nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL format (use 'memory', 'postgres://...' or 'mongodb://...')")
	}
}

// StorageKind detects the storage backend from STORAGE_URL
func (c *ServerConfig) StorageKind() (string, error) {
	u := c.StorageURL
	switch {
	case u == "" || u == "memory" || u == "memory://":
		return StorageMemory, nil
	case strings.HasPrefix(u, "file://"):
		if strings.TrimPrefix(u, "file://") == "" {
			return "", errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
		return StorageFS, nil
	case strings.HasPrefix(u, "s3://"):
		return StorageS3, nil
	case strings.HasPrefix(u, "minio://"):
		return StorageMinio, nil
	default:
		return "", fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'minio://...')", u)
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// WithDotEnv loads variables from .env files into the process environment.
// Missing files are ignored. Existing variables are never overwritten.
func WithDotEnv(paths ...string) Option {
	return func(c *ServerConfig) error {
		if len(paths) == 0 {
			paths = []string{".env"}
		}
		for _, p := range paths {
			if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", p, err)
			}
		}
		return nil
	}
}

// WithEnv reads the environment into the config
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithDatabaseURL sets the database connection string
func WithDatabaseURL(url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = url
		return nil
	}
}

// WithStorageURL sets the storage connection string
func WithStorageURL(url string) Option {
	return func(c *ServerConfig) error {
		c.StorageURL = url
		return nil
	}
}

// WithReconcile configures background reconciliation
func WithReconcile(interval, minAge time.Duration, removeOrphans bool) Option {
	return func(c *ServerConfig) error {
		c.ReconcileInterval = interval
		c.ReconcileMinAge = minAge
		c.ReconcileRemoveOrphans = removeOrphans
		return nil
	}
}

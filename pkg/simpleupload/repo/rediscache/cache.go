package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTTL is the time-to-live for cached records (5 minutes)
	DefaultTTL = 5 * time.Minute

	keyPrefix = "simpleupload"
)

var tracer = otel.Tracer("github.com/tendant/simple-upload/pkg/simpleupload/repo/rediscache")

// Client is the subset of redis commands the cache needs. *redis.Client
// satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Repository is a cache-aside decorator over another repository. The
// wrapped repository stays the source of truth; cache errors are logged
// and never fail an operation.
type Repository struct {
	next       simpleupload.Repository
	client     Client
	collection string
	ttl        time.Duration
	logger     *slog.Logger
}

// Connect parses a redis:// URL and verifies the server with a ping
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// New wraps next. A zero ttl means DefaultTTL.
func New(next simpleupload.Repository, client Client, collection string, ttl time.Duration, logger *slog.Logger) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		next:       next,
		client:     client,
		collection: collection,
		ttl:        ttl,
		logger:     logger.With("component", "record_cache", "collection", collection),
	}
}

func (r *Repository) key(id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, r.collection, id)
}

func (r *Repository) Create(ctx context.Context, filename, filePath string) (*simpleupload.Record, error) {
	record, err := r.next.Create(ctx, filename, filePath)
	if err != nil {
		return nil, err
	}
	r.store(ctx, record)
	return record, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*simpleupload.Record, error) {
	if record, ok := r.lookup(ctx, id); ok {
		return record, nil
	}

	record, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, record)
	return record, nil
}

func (r *Repository) Update(ctx context.Context, id string, update simpleupload.RecordUpdate) (*simpleupload.Record, error) {
	record, err := r.next.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, simpleupload.ErrNotFound) {
			r.invalidate(ctx, id)
		}
		return nil, err
	}
	r.store(ctx, record)
	return record, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	// Invalidate first so a failed delete never leaves a stale hit behind,
	// and again after it, since a read in between may have refilled the key.
	r.invalidate(ctx, id)
	if err := r.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// List always reads through to the wrapped repository
func (r *Repository) List(ctx context.Context) ([]*simpleupload.Record, error) {
	return r.next.List(ctx)
}

func (r *Repository) lookup(ctx context.Context, id string) (*simpleupload.Record, bool) {
	ctx, span := tracer.Start(ctx, "redis.get_record",
		trace.WithAttributes(attribute.String("record_id", id)),
	)
	defer span.End()

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("cache_hit", false))
		return nil, false
	} else if err != nil {
		span.RecordError(err)
		r.logger.WarnContext(ctx, "cache read failed", "id", id, "err", err)
		return nil, false
	}

	var record simpleupload.Record
	if err := json.Unmarshal(data, &record); err != nil {
		span.RecordError(err)
		r.logger.WarnContext(ctx, "cache entry is corrupt", "id", id, "err", err)
		r.invalidate(ctx, id)
		return nil, false
	}

	span.SetAttributes(attribute.Bool("cache_hit", true))
	return &record, true
}

func (r *Repository) store(ctx context.Context, record *simpleupload.Record) {
	ctx, span := tracer.Start(ctx, "redis.set_record",
		trace.WithAttributes(attribute.String("record_id", record.ID)),
	)
	defer span.End()

	data, err := json.Marshal(record)
	if err != nil {
		span.RecordError(err)
		return
	}
	if err := r.client.Set(ctx, r.key(record.ID), data, r.ttl).Err(); err != nil {
		span.RecordError(err)
		r.logger.WarnContext(ctx, "cache write failed", "id", record.ID, "err", err)
	}
}

func (r *Repository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		r.logger.WarnContext(ctx, "cache invalidate failed", "id", id, "err", err)
	}
}

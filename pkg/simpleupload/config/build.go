package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	natsevents "github.com/tendant/simple-upload/pkg/simpleupload/events/nats"
	memoryrepo "github.com/tendant/simple-upload/pkg/simpleupload/repo/memory"
	mongorepo "github.com/tendant/simple-upload/pkg/simpleupload/repo/mongo"
	repopg "github.com/tendant/simple-upload/pkg/simpleupload/repo/postgres"
	"github.com/tendant/simple-upload/pkg/simpleupload/repo/rediscache"
	fsstorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/fs"
	memorystorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/memory"
	miniostorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/minio"
	s3storage "github.com/tendant/simple-upload/pkg/simpleupload/storage/s3"
)

// Runtime holds everything one upload service needs at run time
type Runtime struct {
	Service    simpleupload.Service
	Blobs      *simpleupload.BlobStore
	Repository simpleupload.Repository
	Reconciler *simpleupload.Reconciler

	closers []func()
}

// Close releases connections in reverse order of creation
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// Build wires storage, repository, cache, events and reconciliation for
// the given policy. On error, everything opened so far is closed.
func (c *ServerConfig) Build(ctx context.Context, policy simpleupload.MediaPolicy, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	backend, backendName, err := c.buildBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}
	rt.Blobs = simpleupload.NewBlobStore(backend, policy, simpleupload.WithBackendName(backendName))

	repo, err := c.buildRepository(ctx, rt, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	if c.RedisURL != "" {
		client, err := rediscache.Connect(ctx, c.RedisURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		repo = rediscache.New(repo, client, policy.Collection, c.CacheTTL, logger)
	}
	rt.Repository = repo

	sinks := simpleupload.MultiEventSink{simpleupload.NewLoggingEventSink(logger)}
	if c.NatsURL != "" {
		conn, err := natsevents.Connect(c.NatsURL, "simple-upload-"+policy.Name, logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = conn.Drain() })
		publisher, err := natsevents.NewPublisher(conn, natsevents.Config{Stream: c.NatsStream}, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, publisher)
	}

	rt.Service, err = simpleupload.New(
		simpleupload.WithRepository(repo),
		simpleupload.WithBlobStore(rt.Blobs),
		simpleupload.WithEventSink(sinks),
		simpleupload.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	rt.Reconciler = simpleupload.NewReconciler(rt.Blobs, repo, simpleupload.ReconcileConfig{
		Interval:      c.ReconcileInterval,
		MinAge:        c.ReconcileMinAge,
		RemoveOrphans: c.ReconcileRemoveOrphans,
	}, logger)

	ok = true
	return rt, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime, policy simpleupload.MediaPolicy) (simpleupload.Repository, error) {
	kind, err := c.DatabaseKind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case DatabaseMemory:
		return memoryrepo.New(), nil

	case DatabasePostgres:
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		repo := repopg.NewWithPool(pool, policy.Collection)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil

	case DatabaseMongo:
		client, err := mongorepo.Connect(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = client.Disconnect(context.Background()) })
		return mongorepo.NewWithClient(client, c.MongoDatabase, policy.Collection), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", kind)
	}
}

// buildBackend creates a storage Backend from STORAGE_URL
func (c *ServerConfig) buildBackend(ctx context.Context) (simpleupload.Backend, string, error) {
	kind, err := c.StorageKind()
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case StorageMemory:
		return memorystorage.New(), kind, nil

	case StorageFS:
		backend, err := fsstorage.New(fsstorage.Config{BaseDir: strings.TrimPrefix(c.StorageURL, "file://")})
		if err != nil {
			return nil, "", err
		}
		return backend, kind, nil

	case StorageS3:
		s3Config, err := c.s3Config()
		if err != nil {
			return nil, "", err
		}
		backend, err := s3storage.New(ctx, s3Config)
		if err != nil {
			return nil, "", err
		}
		return backend, kind, nil

	case StorageMinio:
		minioConfig, err := c.minioConfig()
		if err != nil {
			return nil, "", err
		}
		backend, err := miniostorage.New(ctx, minioConfig)
		if err != nil {
			return nil, "", err
		}
		return backend, kind, nil

	default:
		return nil, "", fmt.Errorf("unsupported storage backend type: %s", kind)
	}
}

// s3Config parses s3://bucket?region=&endpoint=&prefix=&path_style=
func (c *ServerConfig) s3Config() (s3storage.Config, error) {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return s3storage.Config{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return s3storage.Config{}, errors.New("S3 bucket name cannot be empty in STORAGE_URL")
	}

	q := u.Query()
	region := q.Get("region")
	if region == "" {
		region = c.AWSRegion
	}
	pathStyle, err := parseBool(q.Get("path_style"), false)
	if err != nil {
		return s3storage.Config{}, fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
	}

	return s3storage.Config{
		Region:                 region,
		Bucket:                 u.Host,
		Prefix:                 q.Get("prefix"),
		AccessKeyID:            c.AWSAccessKeyID,
		SecretAccessKey:        c.AWSSecretAccessKey,
		Endpoint:               q.Get("endpoint"),
		UsePathStyle:           pathStyle,
		CreateBucketIfNotExist: q.Get("create_bucket") == "true",
	}, nil
}

// minioConfig parses minio://host:port/bucket?secure=
func (c *ServerConfig) minioConfig() (miniostorage.Config, error) {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return miniostorage.Config{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	bucket := strings.Trim(u.Path, "/")
	if u.Host == "" || bucket == "" {
		return miniostorage.Config{}, errors.New("minio STORAGE_URL must look like minio://host:port/bucket")
	}

	secure, err := parseBool(u.Query().Get("secure"), false)
	if err != nil {
		return miniostorage.Config{}, fmt.Errorf("invalid secure flag in STORAGE_URL: %w", err)
	}

	return miniostorage.Config{
		Endpoint:  u.Host,
		AccessKey: c.MinioAccessKey,
		SecretKey: c.MinioSecretKey,
		Bucket:    bucket,
		Region:    u.Query().Get("region"),
		UseSSL:    secure,
	}, nil
}

func parseBool(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}

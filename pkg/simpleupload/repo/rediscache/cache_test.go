package rediscache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/repo/memory"
)

type fakeClient struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection reset"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingRepo struct {
	simpleupload.Repository
	gets int
}

func (c *countingRepo) GetByID(ctx context.Context, id string) (*simpleupload.Record, error) {
	c.gets++
	return c.Repository.GetByID(ctx, id)
}

func TestRepository_CacheAside(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	backing := &countingRepo{Repository: memory.New()}
	repo := New(backing, client, "images", 0, nil)

	created, err := repo.Create(ctx, "image-1-1.jpg", "/uploads/image-1-1.jpg")
	require.NoError(t, err)
	assert.Contains(t, client.data, "simpleupload:images:"+created.ID)
	assert.Equal(t, DefaultTTL, client.ttls["simpleupload:images:"+created.ID])

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Filename, got.Filename)
	assert.True(t, created.UploadDate.Equal(got.UploadDate))
	assert.Equal(t, 0, backing.gets, "served from cache")

	// Miss populates the cache
	delete(client.data, "simpleupload:images:"+created.ID)
	_, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.gets)
	assert.Contains(t, client.data, "simpleupload:images:"+created.ID)

	// Update writes through
	name := "image-2-2.png"
	path := "/uploads/image-2-2.png"
	_, err = repo.Update(ctx, created.ID, simpleupload.RecordUpdate{Filename: &name, FilePath: &path})
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, path, got.FilePath)
	assert.Equal(t, 1, backing.gets)

	// Delete invalidates
	require.NoError(t, repo.DeleteByID(ctx, created.ID))
	assert.NotContains(t, client.data, "simpleupload:images:"+created.ID)
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)
}

func TestRepository_CacheErrorsFallThrough(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	backing := &countingRepo{Repository: memory.New()}
	repo := New(backing, client, "pdfs", time.Minute, nil)

	created, err := repo.Create(ctx, "pdf-1-1.pdf", "/uploads/pdf-1-1.pdf")
	require.NoError(t, err)

	client.failGet = true
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 1, backing.gets)
}

func TestRepository_CorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	backing := &countingRepo{Repository: memory.New()}
	repo := New(backing, client, "images", 0, nil)

	created, err := repo.Create(ctx, "image-1-1.gif", "/uploads/image-1-1.gif")
	require.NoError(t, err)
	client.data["simpleupload:images:"+created.ID] = "{not json"

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "image-1-1.gif", got.Filename)
	assert.Equal(t, 1, backing.gets)
}

// readDuringDeleteRepo serves a read through the cache while its delete is
// in flight, the way a concurrent request would.
type readDuringDeleteRepo struct {
	simpleupload.Repository
	cache *Repository
}

func (r *readDuringDeleteRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.cache.GetByID(ctx, id); err != nil {
		return err
	}
	return r.Repository.DeleteByID(ctx, id)
}

func TestRepository_DeleteDropsEntryRefilledMidDelete(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	backing := &readDuringDeleteRepo{Repository: memory.New()}
	repo := New(backing, client, "images", 0, nil)
	backing.cache = repo

	created, err := repo.Create(ctx, "image-1-1.jpg", "/uploads/image-1-1.jpg")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByID(ctx, created.ID))
	assert.NotContains(t, client.data, "simpleupload:images:"+created.ID)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)
}

func TestRepository_FailedDeleteLeavesNoEntry(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	repo := New(memory.New(), client, "images", 0, nil)

	err := repo.DeleteByID(ctx, "missing")
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)
	assert.Empty(t, client.data)
}

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/repo/memory"
)

func TestRepository_CRUD(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	created, err := repo.Create(ctx, "image-1-1.jpg", "/uploads/image-1-1.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.UploadDate.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// Mutating a returned record does not leak into the store
	got.Filename = "tampered"
	again, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "image-1-1.jpg", again.Filename)

	newName := "image-2-2.png"
	updated, err := repo.Update(ctx, created.ID, simpleupload.RecordUpdate{Filename: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Filename)
	assert.Equal(t, "/uploads/image-1-1.jpg", updated.FilePath, "nil fields are left unchanged")
	assert.Equal(t, created.UploadDate, updated.UploadDate)
	assert.Equal(t, created.ID, updated.ID)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, repo.DeleteByID(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)
}

func TestRepository_NotFound(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)

	_, err = repo.Update(ctx, "missing", simpleupload.RecordUpdate{})
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteByID(ctx, "missing"), simpleupload.ErrNotFound)
}

func TestRepository_UniqueIDs(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		rec, err := repo.Create(ctx, "f", "/uploads/f")
		require.NoError(t, err)
		_, dup := seen[rec.ID]
		require.False(t, dup, "duplicate id %s", rec.ID)
		seen[rec.ID] = struct{}{}
	}
}

package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	memorystorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	name := "pdf-1700000000000-7.pdf"
	data := "%PDF-1.4 test data"

	t.Run("Write", func(t *testing.T) {
		err := backend.Write(ctx, name, strings.NewReader(data), "application/pdf")
		assert.NoError(t, err)
		contentType, ok := backend.ContentType(name)
		assert.True(t, ok)
		assert.Equal(t, "application/pdf", contentType)
	})

	t.Run("Open", func(t *testing.T) {
		rc, err := backend.Open(ctx, name)
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, string(got))
		_, seekable := rc.(io.ReadSeeker)
		assert.True(t, seekable)
	})

	t.Run("List", func(t *testing.T) {
		objects, err := backend.List(ctx)
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, name, objects[0].Name)
		assert.Equal(t, int64(len(data)), objects[0].Size)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, backend.Remove(ctx, name))
		assert.Equal(t, 0, backend.Len())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := backend.Open(ctx, name)
		assert.ErrorIs(t, err, simpleupload.ErrFileNotFound)
		assert.ErrorIs(t, backend.Remove(ctx, name), simpleupload.ErrFileNotFound)
	})
}

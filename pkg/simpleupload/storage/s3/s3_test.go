package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(context.Background(), Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("StaticCredentials", func(t *testing.T) {
		backend, err := New(context.Background(), Config{
			Bucket:          "uploads",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
			Prefix:          "/uploads/",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, "uploads/", backend.prefix)
	})
}

func TestS3Backend_KeyMapping(t *testing.T) {
	b := &Backend{prefix: normalizePrefix("media")}

	assert.Equal(t, "media/image-1-2.jpg", b.key("image-1-2.jpg"))

	tests := []struct {
		key  string
		name string
		ok   bool
	}{
		{key: "media/image-1-2.jpg", name: "image-1-2.jpg", ok: true},
		{key: "media/", ok: false},
		{key: "media/nested/pdf-1-2.pdf", ok: false},
		{key: "other/pdf-1-2.pdf", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, ok := b.nameOf(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix("/"))
	assert.Equal(t, "a/b/", normalizePrefix("/a/b/"))
}

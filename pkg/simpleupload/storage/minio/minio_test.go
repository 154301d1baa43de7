package minio

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "uploads"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")

	_, err = New(context.Background(), Config{Endpoint: "localhost:9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey"}, notFound: true},
		{name: "http 404", err: minio.ErrorResponse{StatusCode: http.StatusNotFound}, notFound: true},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}},
		{name: "network", err: errors.New("dial tcp: connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("stat object", tt.err)
			assert.Equal(t, tt.notFound, errors.Is(err, simpleupload.ErrFileNotFound))
		})
	}
}

func TestIsBucketOwned(t *testing.T) {
	assert.True(t, isBucketOwned(minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, isBucketOwned(minio.ErrorResponse{Code: "AccessDenied"}))
}

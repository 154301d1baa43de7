package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Backend stores objects in a MinIO bucket
type Backend struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and creates the bucket when it is missing
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region})
		if err != nil && !isBucketOwned(err) {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Backend{client: client, bucket: config.Bucket}, nil
}

// Write streams content with unknown size; PutObject is atomic per key.
func (b *Backend) Write(ctx context.Context, name string, reader io.Reader, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, name, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Open returns a *minio.Object, which supports seeking
func (b *Backend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError("get object", err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapError("stat object", err)
	}
	return obj, nil
}

// Remove deletes the object. RemoveObject ignores missing keys, so the key
// is checked first to report ErrFileNotFound.
func (b *Backend) Remove(ctx context.Context, name string) error {
	if _, err := b.client.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{}); err != nil {
		return mapError("stat object", err)
	}
	if err := b.client.RemoveObject(ctx, b.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// List enumerates top-level objects in the bucket
func (b *Backend) List(ctx context.Context) ([]simpleupload.ObjectInfo, error) {
	var objects []simpleupload.ObjectInfo
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, simpleupload.ObjectInfo{
			Name:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}
	return objects, nil
}

func mapError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return simpleupload.ErrFileNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isBucketOwned(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
}

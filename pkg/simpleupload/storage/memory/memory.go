package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

type object struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// Backend is an in-memory implementation of the simpleupload.Backend interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

// Write reads the whole content before storing it, so a failed read stores nothing
func (b *Backend) Write(ctx context.Context, name string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[name] = object{
		data:        data,
		contentType: contentType,
		modTime:     b.now(),
	}
	return nil
}

// Open returns a seekable reader over a copy of the object
func (b *Backend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[name]
	if !exists {
		return nil, simpleupload.ErrFileNotFound
	}

	return readSeekNopCloser{bytes.NewReader(bytes.Clone(obj.data))}, nil
}

// Remove deletes the named object
func (b *Backend) Remove(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[name]; !exists {
		return simpleupload.ErrFileNotFound
	}
	delete(b.objects, name)
	return nil
}

// List returns all objects sorted by name
func (b *Backend) List(ctx context.Context) ([]simpleupload.ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	objects := make([]simpleupload.ObjectInfo, 0, len(b.objects))
	for name, obj := range b.objects {
		objects = append(objects, simpleupload.ObjectInfo{
			Name:    name,
			Size:    int64(len(obj.data)),
			ModTime: obj.modTime,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// ContentType returns the content type recorded at write time
func (b *Backend) ContentType(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[name]
	return obj.contentType, exists
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

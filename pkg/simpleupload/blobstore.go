package simpleupload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"strconv"
	"strings"
	"time"
)

// DefaultPublicPrefix is the logical prefix under which stored files are served.
const DefaultPublicPrefix = "/uploads"

const maxExtensionLength = 10

// BlobStore places, resolves and removes stored files of one media variant.
// It validates media types and generates names; the Backend only moves bytes.
type BlobStore struct {
	backend     Backend
	backendName string
	policy      MediaPolicy
	prefix      string
	now         func() time.Time
	randInt     func() int64
}

// BlobStoreOption configures a BlobStore.
type BlobStoreOption func(*BlobStore)

// WithPublicPrefix sets the logical path prefix returned by Resolve.
func WithPublicPrefix(prefix string) BlobStoreOption {
	return func(s *BlobStore) {
		if trimmed := strings.Trim(prefix, "/"); trimmed != "" {
			s.prefix = "/" + trimmed
		} else {
			s.prefix = ""
		}
	}
}

// WithBackendName labels the backend in errors and logs.
func WithBackendName(name string) BlobStoreOption {
	return func(s *BlobStore) {
		s.backendName = name
	}
}

// WithClock overrides the time source used for naming.
func WithClock(now func() time.Time) BlobStoreOption {
	return func(s *BlobStore) {
		s.now = now
	}
}

// NewBlobStore creates a BlobStore for the given policy.
func NewBlobStore(backend Backend, policy MediaPolicy, opts ...BlobStoreOption) *BlobStore {
	s := &BlobStore{
		backend:     backend,
		backendName: "default",
		policy:      policy,
		prefix:      DefaultPublicPrefix,
		now:         time.Now,
		randInt:     func() int64 { return int64(rand.Uint64()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the media policy enforced by the store.
func (s *BlobStore) Policy() MediaPolicy {
	return s.policy
}

// Place validates the media type, generates a fresh storage name and writes
// the content. Nothing is written when the media type is rejected.
func (s *BlobStore) Place(ctx context.Context, reader io.Reader, mediaType, originalName string) (*StoredFile, error) {
	mediaType = NormalizeMediaType(mediaType)
	if !s.policy.Allows(mediaType) {
		return nil, fmt.Errorf("%w: %q, allowed: %s", ErrUnsupportedMediaType, mediaType,
			strings.Join(s.policy.AllowedTypes(), ", "))
	}

	// The client extension is kept only when it names the declared type,
	// since the extension later decides the served Content-Type.
	ext := extensionOf(originalName, "")
	if extType, ok := s.policy.MediaTypeForExtension(ext); !ok || extType != mediaType {
		ext = s.policy.Allowed[mediaType]
	}
	name := s.newName(ext)
	counter := &countingReader{r: reader}
	if err := s.backend.Write(ctx, name, counter, mediaType); err != nil {
		return nil, &StorageError{
			Backend: s.backendName,
			Name:    name,
			Op:      "place",
			Err:     fmt.Errorf("%w: %w", ErrStorageWriteFailed, err),
		}
	}

	return &StoredFile{
		Name:      name,
		Path:      s.prefix + "/" + name,
		MediaType: mediaType,
		Size:      counter.n,
	}, nil
}

// Remove deletes the named stored file. ErrFileNotFound if it is absent.
func (s *BlobStore) Remove(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := s.backend.Remove(ctx, name)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrFileNotFound) {
		return &StorageError{Backend: s.backendName, Name: name, Op: "remove", Err: err}
	}
	return &StorageError{
		Backend: s.backendName,
		Name:    name,
		Op:      "remove",
		Err:     fmt.Errorf("%w: %w", ErrStorageWriteFailed, err),
	}
}

// Resolve returns the logical path of a storage name. It performs no I/O.
func (s *BlobStore) Resolve(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	return s.prefix + "/" + name, nil
}

// NameOf is the inverse of Resolve.
func (s *BlobStore) NameOf(filePath string) (string, error) {
	name, ok := strings.CutPrefix(filePath, s.prefix+"/")
	if !ok {
		return "", fmt.Errorf("%w: %q is outside %s", ErrInvalidName, filePath, s.prefix)
	}
	if err := validName(name); err != nil {
		return "", err
	}
	return name, nil
}

// Open returns a reader on the named stored file.
func (s *BlobStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	rc, err := s.backend.Open(ctx, name)
	if err != nil {
		return nil, &StorageError{Backend: s.backendName, Name: name, Op: "open", Err: err}
	}
	return rc, nil
}

// MediaTypeOf returns the media type a stored file is served with. Names
// whose extension is outside the allow-list are served as
// application/octet-stream.
func (s *BlobStore) MediaTypeOf(name string) string {
	if mediaType, ok := s.policy.MediaTypeForExtension(extensionOf(name, "")); ok {
		return mediaType
	}
	return "application/octet-stream"
}

// List returns the stored files that carry this policy's field tag.
// Other variants may share the backend.
func (s *BlobStore) List(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := s.backend.List(ctx)
	if err != nil {
		return nil, &StorageError{Backend: s.backendName, Op: "list", Err: err}
	}
	prefix := s.policy.FieldTag + "-"
	owned := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasPrefix(obj.Name, prefix) {
			owned = append(owned, obj)
		}
	}
	return owned, nil
}

// newName builds {fieldTag}-{unixMillis}-{random}{ext}.
func (s *BlobStore) newName(ext string) string {
	var b strings.Builder
	b.WriteString(s.policy.FieldTag)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(s.now().UnixMilli(), 10))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(s.randInt(), 10))
	b.WriteString(ext)
	return b.String()
}

// extensionOf keeps the client extension when it is short and alphanumeric.
func extensionOf(originalName, fallback string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(originalName, `\`, "/")))
	if len(ext) < 2 || len(ext) > maxExtensionLength {
		return fallback
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return fallback
		}
	}
	return ext
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

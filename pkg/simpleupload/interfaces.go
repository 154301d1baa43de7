package simpleupload

import (
	"context"
	"io"
)

// Service coordinates a BlobStore and a Repository for one media variant.
// Steps inside an operation run sequentially; ordering is what keeps
// stored files and records consistent.
type Service interface {
	// Create places the uploaded file and records it.
	// A nil upload fails with ErrMissingFile.
	Create(ctx context.Context, upload *Upload) (*Record, error)

	// Fetch returns the record and an open reader on its stored file.
	// ErrNotFound when the record is absent, ErrFileNotFound when only the file is.
	Fetch(ctx context.Context, id string) (*Download, error)

	// Update replaces the stored file of a record. A nil upload leaves
	// storage and metadata untouched and returns the current record.
	Update(ctx context.Context, id string, upload *Upload) (*Record, error)

	// Delete removes the stored file, then the record.
	Delete(ctx context.Context, id string) error

	// Policy returns the media policy the service enforces.
	Policy() MediaPolicy
}

// Backend stores raw bytes under flat storage names.
type Backend interface {
	// Write stores the content of reader under name. A failed write
	// must not leave a partially written object visible under name.
	Write(ctx context.Context, name string, reader io.Reader, contentType string) error

	// Open returns a reader on the named object, ErrFileNotFound if absent.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes the named object, ErrFileNotFound if absent.
	Remove(ctx context.Context, name string) error

	// List enumerates stored objects.
	List(ctx context.Context) ([]ObjectInfo, error)
}

// Repository defines the interface for record persistence.
// Absent or malformed ids fail with ErrNotFound.
type Repository interface {
	Create(ctx context.Context, filename, filePath string) (*Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, update RecordUpdate) (*Record, error)
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Record, error)
}

// EventSink receives notifications after successful operations.
type EventSink interface {
	FileUploaded(ctx context.Context, variant string, record *Record) error
	FileReplaced(ctx context.Context, variant string, record *Record, previousFilename string) error
	FileDeleted(ctx context.Context, variant string, record *Record) error
}

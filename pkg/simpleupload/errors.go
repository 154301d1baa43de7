package simpleupload

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrMissingFile indicates the request carried no file under the policy's field tag
	ErrMissingFile = errors.New("missing file")

	// ErrUnsupportedMediaType indicates the declared media type is not in the policy allow-list
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrNotFound indicates no record exists for the given id
	ErrNotFound = errors.New("record not found")

	// ErrFileNotFound indicates the stored file is absent
	ErrFileNotFound = errors.New("file not found")

	// ErrStorageWriteFailed indicates the blob store could not place or remove a file
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrMetadataWriteFailed indicates the repository could not persist a record change
	ErrMetadataWriteFailed = errors.New("metadata write failed")

	// ErrInvalidName indicates a storage name or file path that cannot be resolved
	ErrInvalidName = errors.New("invalid storage name")
)

// OperationError represents a failed coordinator operation
type OperationError struct {
	Variant string
	Op      string
	ID      string
	Err     error
}

func (e *OperationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s failed: %v", e.Variant, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed for record %s: %v", e.Variant, e.Op, e.ID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Name    string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for %s in backend %s: %v", e.Op, e.Name, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

package simpleupload

import (
	"io"
	"time"
)

// Record is the metadata describing one stored file.
type Record struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filePath"`
	UploadDate time.Time `json:"uploadDate"`
}

// RecordUpdate is a partial update; nil fields are left unchanged.
type RecordUpdate struct {
	Filename *string
	FilePath *string
}

// IsEmpty reports whether the update changes nothing.
func (u RecordUpdate) IsEmpty() bool {
	return u.Filename == nil && u.FilePath == nil
}

// Upload is a decoded file part ready to be placed.
type Upload struct {
	Body         io.Reader
	MediaType    string
	OriginalName string
}

// StoredFile describes bytes placed by the BlobStore.
type StoredFile struct {
	Name      string
	Path      string
	MediaType string
	Size      int64
}

// ObjectInfo is a listing entry returned by a Backend.
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Download is the result of fetching a record together with its bytes.
// Body may also implement io.ReadSeeker. Callers must close it.
type Download struct {
	Record    *Record
	Name      string
	MediaType string
	Body      io.ReadCloser
}

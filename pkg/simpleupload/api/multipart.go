package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// readFilePart scans a multipart body for the file part named field and
// returns it unbuffered. The part stays readable until the handler
// returns. A request without that part yields (nil, nil).
func readFilePart(r *http.Request, field string) (*simpleupload.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid multipart request: %w", err)
	}

	for {
		part, err := mr.NextPart()
		// Only a bare io.EOF marks a clean end; a body that ends before
		// its first boundary comes back wrapped and is an error.
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart part: %w", err)
		}

		// Plain form values under the same name are not files.
		if part.FormName() != field || part.FileName() == "" {
			continue
		}

		return &simpleupload.Upload{
			Body:         part,
			MediaType:    part.Header.Get("Content-Type"),
			OriginalName: part.FileName(),
		}, nil
	}
}

package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// StaticHandler serves stored files read-only by storage name
type StaticHandler struct {
	blobs *simpleupload.BlobStore
}

// NewStaticHandler creates a handler serving files through blobs
func NewStaticHandler(blobs *simpleupload.BlobStore) *StaticHandler {
	return &StaticHandler{blobs: blobs}
}

// Routes returns the routes for static files, relative to the public prefix
func (h *StaticHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{name}", h.ServeFile)
	r.Head("/{name}", h.ServeFile)
	return r
}

// ServeFile streams one stored file
func (h *StaticHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := h.blobs.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, simpleupload.ErrFileNotFound) || errors.Is(err, simpleupload.ErrInvalidName) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, MessageResponse{Message: "File not found"})
			return
		}
		slog.Error("Failed to open stored file", "name", name, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, MessageResponse{Message: "Error reading file"})
		return
	}
	defer body.Close()

	serveBody(w, r, name, h.blobs.MediaTypeOf(name), time.Time{}, body)
}

// serveBody writes a stored file. Seekable bodies get range and
// conditional request support from http.ServeContent.
func serveBody(w http.ResponseWriter, r *http.Request, name, mediaType string, modTime time.Time, body io.Reader) {
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, modTime, rs)
		return
	}

	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("Failed to stream file", "name", name, "error", err)
	}
}

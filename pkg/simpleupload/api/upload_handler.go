package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// MessageResponse is the body of every JSON response
type MessageResponse struct {
	Message string               `json:"message"`
	Record  *simpleupload.Record `json:"record,omitempty"`
}

// UploadHandler exposes one upload service over HTTP
type UploadHandler struct {
	service simpleupload.Service
	policy  simpleupload.MediaPolicy
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service simpleupload.Service) *UploadHandler {
	return &UploadHandler{
		service: service,
		policy:  service.Policy(),
	}
}

// Routes returns the routes for uploads of the service's variant
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", h.Create)
	r.Route(h.policy.RoutePrefix, func(r chi.Router) {
		r.Get("/{id}", h.Fetch)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// Create stores an uploaded file and records it
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	msgs := h.policy.Messages

	upload, err := readFilePart(r, h.policy.FieldTag)
	if err != nil {
		slog.Warn("Failed to read multipart request", "error", err)
		h.respond(w, r, http.StatusBadRequest, msgs.MissingFile, nil)
		return
	}
	if upload == nil {
		h.respond(w, r, http.StatusBadRequest, msgs.MissingFile, nil)
		return
	}

	record, err := h.service.Create(r.Context(), upload)
	if err != nil {
		status, message := h.createError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to create upload", "variant", h.policy.Name, "error", err)
		}
		h.respond(w, r, status, message, nil)
		return
	}

	h.respond(w, r, http.StatusOK, msgs.Uploaded, record)
}

// Fetch streams the stored file of a record
func (h *UploadHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	download, err := h.service.Fetch(r.Context(), id)
	if err != nil {
		status, message := h.fetchError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to fetch upload", "variant", h.policy.Name, "id", id, "error", err)
		}
		h.respond(w, r, status, message, nil)
		return
	}
	defer download.Body.Close()

	serveBody(w, r, download.Name, download.MediaType, download.Record.UploadDate, download.Body)
}

// Update replaces the stored file of a record when a file part is present
func (h *UploadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msgs := h.policy.Messages

	// A missing file part is a metadata-only update; a broken body is not.
	upload, err := readFilePart(r, h.policy.FieldTag)
	if err != nil {
		slog.Warn("Failed to read multipart request", "id", id, "error", err)
		h.respond(w, r, http.StatusBadRequest, msgs.UpdateFailed, nil)
		return
	}

	record, err := h.service.Update(r.Context(), id, upload)
	if err != nil {
		status, message := h.updateError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to update upload", "variant", h.policy.Name, "id", id, "error", err)
		}
		h.respond(w, r, status, message, nil)
		return
	}

	h.respond(w, r, http.StatusOK, msgs.Updated, record)
}

// Delete removes the stored file, then the record
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		status, message := h.deleteError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to delete upload", "variant", h.policy.Name, "id", id, "error", err)
		}
		h.respond(w, r, status, message, nil)
		return
	}

	h.respond(w, r, http.StatusOK, h.policy.Messages.Deleted, nil)
}

func (h *UploadHandler) respond(w http.ResponseWriter, r *http.Request, status int, message string, record *simpleupload.Record) {
	render.Status(r, status)
	render.JSON(w, r, MessageResponse{Message: message, Record: record})
}

func (h *UploadHandler) createError(err error) (int, string) {
	msgs := h.policy.Messages
	switch {
	case errors.Is(err, simpleupload.ErrMissingFile):
		return http.StatusBadRequest, msgs.MissingFile
	case errors.Is(err, simpleupload.ErrUnsupportedMediaType):
		return http.StatusBadRequest, msgs.UnsupportedType
	case errors.Is(err, simpleupload.ErrMetadataWriteFailed):
		return http.StatusInternalServerError, msgs.SaveFailed
	default:
		return http.StatusInternalServerError, msgs.StoreFailed
	}
}

func (h *UploadHandler) fetchError(err error) (int, string) {
	msgs := h.policy.Messages
	switch {
	case errors.Is(err, simpleupload.ErrNotFound):
		return http.StatusNotFound, msgs.NotFound
	case errors.Is(err, simpleupload.ErrFileNotFound):
		return http.StatusNotFound, msgs.FileNotFound
	default:
		return http.StatusInternalServerError, msgs.FetchFailed
	}
}

func (h *UploadHandler) updateError(err error) (int, string) {
	msgs := h.policy.Messages
	switch {
	case errors.Is(err, simpleupload.ErrNotFound):
		return http.StatusNotFound, msgs.NotFound
	case errors.Is(err, simpleupload.ErrUnsupportedMediaType):
		return http.StatusBadRequest, msgs.UnsupportedType
	default:
		return http.StatusInternalServerError, msgs.UpdateFailed
	}
}

func (h *UploadHandler) deleteError(err error) (int, string) {
	msgs := h.policy.Messages
	switch {
	case errors.Is(err, simpleupload.ErrNotFound):
		return http.StatusNotFound, msgs.NotFound
	case errors.Is(err, simpleupload.ErrStorageWriteFailed):
		return http.StatusInternalServerError, msgs.DeleteFileFailed
	default:
		return http.StatusInternalServerError, msgs.DeleteFailed
	}
}

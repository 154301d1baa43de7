package simpleupload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/tendant/simple-upload/pkg/simpleupload")

// service implements the Service interface
type service struct {
	repository Repository
	blobs      *BlobStore
	eventSink  EventSink
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob store; its media policy becomes the service's policy
func WithBlobStore(store *BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink: NewNoopEventSink(),
		logger:    slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, errors.New("repository is required")
	}
	if s.blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if err := s.blobs.Policy().Validate(); err != nil {
		return nil, err
	}
	s.logger = s.logger.With("component", "upload_service", "variant", s.blobs.Policy().Name)

	return s, nil
}

func (s *service) Policy() MediaPolicy {
	return s.blobs.Policy()
}

func (s *service) Create(ctx context.Context, upload *Upload) (record *Record, err error) {
	ctx, span := s.startSpan(ctx, "create")
	defer func() { s.finish(span, "create", err) }()

	if upload == nil || upload.Body == nil {
		return nil, s.opError("create", "", ErrMissingFile)
	}

	// Writes are not cut short by a client disconnect.
	wctx := context.WithoutCancel(ctx)

	placed, err := s.blobs.Place(wctx, upload.Body, upload.MediaType, upload.OriginalName)
	if err != nil {
		return nil, s.opError("create", "", err)
	}
	uploadedBytesTotal.WithLabelValues(s.Policy().Name).Add(float64(placed.Size))

	record, err = s.repository.Create(wctx, placed.Name, placed.Path)
	if err != nil {
		s.cleanup(wctx, "create", placed.Name)
		return nil, s.opError("create", "", fmt.Errorf("%w: %w", ErrMetadataWriteFailed, err))
	}

	s.logger.InfoContext(ctx, "File uploaded", "id", record.ID, "filename", record.Filename, "size", placed.Size)
	if err := s.eventSink.FileUploaded(wctx, s.Policy().Name, record); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish upload event", "id", record.ID, "error", err)
	}

	return record, nil
}

func (s *service) Fetch(ctx context.Context, id string) (download *Download, err error) {
	ctx, span := s.startSpan(ctx, "fetch", attribute.String("record.id", id))
	defer func() { s.finish(span, "fetch", err) }()

	record, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, s.opError("fetch", id, err)
	}

	name, err := s.blobs.NameOf(record.FilePath)
	if err != nil {
		// A path that resolves to nothing is a missing file from the caller's view.
		return nil, s.opError("fetch", id, fmt.Errorf("%w: %w", ErrFileNotFound, err))
	}

	body, err := s.blobs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			s.logger.WarnContext(ctx, "Record points at a missing file", "id", id, "filename", name)
		}
		return nil, s.opError("fetch", id, err)
	}

	return &Download{
		Record:    record,
		Name:      name,
		MediaType: s.blobs.MediaTypeOf(name),
		Body:      body,
	}, nil
}

func (s *service) Update(ctx context.Context, id string, upload *Upload) (updated *Record, err error) {
	ctx, span := s.startSpan(ctx, "update", attribute.String("record.id", id))
	defer func() { s.finish(span, "update", err) }()

	wctx := context.WithoutCancel(ctx)

	current, err := s.repository.GetByID(wctx, id)
	if err != nil {
		return nil, s.opError("update", id, err)
	}

	if upload == nil || upload.Body == nil {
		return current, nil
	}

	// The new file is durably placed before anything else changes.
	placed, err := s.blobs.Place(wctx, upload.Body, upload.MediaType, upload.OriginalName)
	if err != nil {
		return nil, s.opError("update", id, err)
	}
	uploadedBytesTotal.WithLabelValues(s.Policy().Name).Add(float64(placed.Size))

	updated, err = s.repository.Update(wctx, id, RecordUpdate{
		Filename: &placed.Name,
		FilePath: &placed.Path,
	})
	if err != nil {
		// Roll back: the record still points at the old file, which is intact.
		s.cleanup(wctx, "update", placed.Name)
		if errors.Is(err, ErrNotFound) {
			return nil, s.opError("update", id, err)
		}
		return nil, s.opError("update", id, fmt.Errorf("%w: %w", ErrMetadataWriteFailed, err))
	}

	if oldName, err := s.blobs.NameOf(current.FilePath); err != nil {
		s.logger.WarnContext(ctx, "Previous file path is not resolvable, skipping removal",
			"id", id, "file_path", current.FilePath, "error", err)
	} else {
		s.cleanup(wctx, "update", oldName)
	}

	s.logger.InfoContext(ctx, "File replaced", "id", id, "filename", updated.Filename, "previous", current.Filename)
	if err := s.eventSink.FileReplaced(wctx, s.Policy().Name, updated, current.Filename); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish replace event", "id", id, "error", err)
	}

	return updated, nil
}

func (s *service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "delete", attribute.String("record.id", id))
	defer func() { s.finish(span, "delete", err) }()

	wctx := context.WithoutCancel(ctx)

	record, err := s.repository.GetByID(wctx, id)
	if err != nil {
		return s.opError("delete", id, err)
	}

	name, err := s.blobs.NameOf(record.FilePath)
	if err != nil {
		return s.opError("delete", id, fmt.Errorf("%w: %w", ErrStorageWriteFailed, err))
	}

	// The record is kept when the file cannot be removed.
	if err := s.blobs.Remove(wctx, name); err != nil {
		if !errors.Is(err, ErrStorageWriteFailed) {
			err = fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
		}
		return s.opError("delete", id, err)
	}

	if err := s.repository.DeleteByID(wctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.opError("delete", id, err)
		}
		return s.opError("delete", id, fmt.Errorf("%w: %w", ErrMetadataWriteFailed, err))
	}

	s.logger.InfoContext(ctx, "File deleted", "id", id, "filename", name)
	if err := s.eventSink.FileDeleted(wctx, s.Policy().Name, record); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish delete event", "id", id, "error", err)
	}

	return nil
}

// cleanup removes a file on a best-effort basis. Failures are logged and
// counted, never returned.
func (s *service) cleanup(ctx context.Context, op, name string) {
	if err := s.blobs.Remove(ctx, name); err != nil {
		cleanupFailuresTotal.WithLabelValues(s.Policy().Name, op).Inc()
		s.logger.WarnContext(ctx, "Failed to remove file, leaving orphan", "operation", op, "filename", name, "error", err)
	}
}

func (s *service) opError(op, id string, err error) error {
	return &OperationError{Variant: s.Policy().Name, Op: op, ID: id, Err: err}
}

func (s *service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("upload.variant", s.Policy().Name))
	return tracer.Start(ctx, "simpleupload."+op, trace.WithAttributes(attrs...))
}

func (s *service) finish(span trace.Span, op string, err error) {
	operationsTotal.WithLabelValues(s.Policy().Name, op, resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

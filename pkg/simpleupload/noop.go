package simpleupload

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// FileUploaded does nothing and returns nil
func (n *NoopEventSink) FileUploaded(ctx context.Context, variant string, record *Record) error {
	return nil
}

// FileReplaced does nothing and returns nil
func (n *NoopEventSink) FileReplaced(ctx context.Context, variant string, record *Record, previousFilename string) error {
	return nil
}

// FileDeleted does nothing and returns nil
func (n *NoopEventSink) FileDeleted(ctx context.Context, variant string, record *Record) error {
	return nil
}

// LoggingEventSink writes every event to a structured logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that logs events at info level
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger.With("component", "events")}
}

func (l *LoggingEventSink) FileUploaded(ctx context.Context, variant string, record *Record) error {
	l.logger.InfoContext(ctx, "File uploaded", "variant", variant, "id", record.ID, "filename", record.Filename)
	return nil
}

func (l *LoggingEventSink) FileReplaced(ctx context.Context, variant string, record *Record, previousFilename string) error {
	l.logger.InfoContext(ctx, "File replaced", "variant", variant, "id", record.ID,
		"filename", record.Filename, "previous", previousFilename)
	return nil
}

func (l *LoggingEventSink) FileDeleted(ctx context.Context, variant string, record *Record) error {
	l.logger.InfoContext(ctx, "File deleted", "variant", variant, "id", record.ID, "filename", record.Filename)
	return nil
}

// MultiEventSink fans events out to several sinks and returns the first error
type MultiEventSink []EventSink

func (m MultiEventSink) FileUploaded(ctx context.Context, variant string, record *Record) error {
	var first error
	for _, sink := range m {
		if err := sink.FileUploaded(ctx, variant, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) FileReplaced(ctx context.Context, variant string, record *Record, previousFilename string) error {
	var first error
	for _, sink := range m {
		if err := sink.FileReplaced(ctx, variant, record, previousFilename); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) FileDeleted(ctx context.Context, variant string, record *Record) error {
	var first error
	for _, sink := range m {
		if err := sink.FileDeleted(ctx, variant, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

const (
	DefaultStream        = "UPLOADS"
	DefaultSubjectPrefix = "uploads"
	defaultMaxAge        = 30 * 24 * time.Hour
)

// Event types
const (
	EventUploaded = "uploaded"
	EventReplaced = "replaced"
	EventDeleted  = "deleted"
)

// Event is the JSON payload published for every lifecycle change
type Event struct {
	Type       string    `json:"type"`
	Variant    string    `json:"variant"`
	RecordID   string    `json:"recordId"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filePath"`
	Previous   string    `json:"previous,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// jetStream is the part of nats.JetStreamContext the publisher uses
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// Config for the publisher
type Config struct {
	Stream        string
	SubjectPrefix string
	MaxAge        time.Duration
}

// Publisher implements simpleupload.EventSink on a JetStream stream
type Publisher struct {
	js     jetStream
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// Connect dials NATS with reconnects enabled
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewPublisher creates a publisher on conn and ensures the stream exists
func NewPublisher(conn *nats.Conn, config Config, logger *slog.Logger) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return newPublisher(js, config, logger)
}

func newPublisher(js jetStream, config Config, logger *slog.Logger) (*Publisher, error) {
	if config.Stream == "" {
		config.Stream = DefaultStream
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultSubjectPrefix
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		js:     js,
		config: config,
		logger: logger.With("component", "nats_publisher", "stream", config.Stream),
		now:    time.Now,
	}
	if err := p.ensureStream(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream() error {
	_, err := p.js.StreamInfo(p.config.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", p.config.Stream, err)
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     p.config.Stream,
		Subjects: []string{p.config.SubjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   p.config.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", p.config.Stream, err)
	}
	p.logger.Info("Created stream", "subjects", p.config.SubjectPrefix+".>")
	return nil
}

// Subject returns the subject an event is published on
func (p *Publisher) Subject(variant, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, variant, eventType)
}

func (p *Publisher) FileUploaded(ctx context.Context, variant string, record *simpleupload.Record) error {
	return p.publish(ctx, EventUploaded, variant, record, "")
}

func (p *Publisher) FileReplaced(ctx context.Context, variant string, record *simpleupload.Record, previousFilename string) error {
	return p.publish(ctx, EventReplaced, variant, record, previousFilename)
}

func (p *Publisher) FileDeleted(ctx context.Context, variant string, record *simpleupload.Record) error {
	return p.publish(ctx, EventDeleted, variant, record, "")
}

func (p *Publisher) publish(ctx context.Context, eventType, variant string, record *simpleupload.Record, previous string) error {
	event := Event{
		Type:       eventType,
		Variant:    variant,
		RecordID:   record.ID,
		Filename:   record.Filename,
		FilePath:   record.FilePath,
		Previous:   previous,
		OccurredAt: p.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	subject := p.Subject(variant, eventType)
	// Storage names are unique, so the id deduplicates retried publishes
	msgID := fmt.Sprintf("%s.%s.%s", eventType, record.ID, record.Filename)
	if _, err := p.js.Publish(subject, data, nats.MsgId(msgID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.DebugContext(ctx, "Published event", "subject", subject, "id", record.ID)
	return nil
}

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

type published struct {
	subject string
	data    []byte
	opts    int
}

type fakeJetStream struct {
	streams    map[string]*nats.StreamConfig
	infoErr    error
	publishErr error
	published  []published
}

func newFakeJetStream() *fakeJetStream {
	return &fakeJetStream{streams: map[string]*nats.StreamConfig{}}
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, published{subject: subj, data: data, opts: len(opts)})
	return &nats.PubAck{Stream: DefaultStream, Sequence: uint64(len(f.published))}, nil
}

func (f *fakeJetStream) StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	cfg, ok := f.streams[stream]
	if !ok {
		return nil, nats.ErrStreamNotFound
	}
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.streams[cfg.Name] = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestNewPublisher_EnsuresStream(t *testing.T) {
	js := newFakeJetStream()
	_, err := newPublisher(js, Config{}, nil)
	require.NoError(t, err)

	cfg, ok := js.streams[DefaultStream]
	require.True(t, ok)
	assert.Equal(t, []string{"uploads.>"}, cfg.Subjects)
	assert.Equal(t, nats.FileStorage, cfg.Storage)

	// Existing stream is left alone
	_, err = newPublisher(js, Config{}, nil)
	require.NoError(t, err)
	assert.Len(t, js.streams, 1)
}

func TestNewPublisher_LookupFailure(t *testing.T) {
	js := newFakeJetStream()
	js.infoErr = errors.New("jetstream not enabled")
	_, err := newPublisher(js, Config{}, nil)
	assert.Error(t, err)
	assert.Empty(t, js.streams)
}

func TestPublisher_Events(t *testing.T) {
	js := newFakeJetStream()
	p, err := newPublisher(js, Config{Stream: "TEST", SubjectPrefix: "files"}, nil)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	rec := &simpleupload.Record{ID: "abc", Filename: "image-2-2.png", FilePath: "/uploads/image-2-2.png"}

	require.NoError(t, p.FileUploaded(ctx, "image", rec))
	require.NoError(t, p.FileReplaced(ctx, "image", rec, "image-1-1.jpg"))
	require.NoError(t, p.FileDeleted(ctx, "image", rec))

	require.Len(t, js.published, 3)
	assert.Equal(t, "files.image.uploaded", js.published[0].subject)
	assert.Equal(t, "files.image.replaced", js.published[1].subject)
	assert.Equal(t, "files.image.deleted", js.published[2].subject)
	assert.Equal(t, 2, js.published[0].opts, "message id and context")

	var event Event
	require.NoError(t, json.Unmarshal(js.published[1].data, &event))
	assert.Equal(t, EventReplaced, event.Type)
	assert.Equal(t, "abc", event.RecordID)
	assert.Equal(t, "image-1-1.jpg", event.Previous)
	assert.Equal(t, "/uploads/image-2-2.png", event.FilePath)
}

func TestPublisher_PublishError(t *testing.T) {
	js := newFakeJetStream()
	p, err := newPublisher(js, Config{}, nil)
	require.NoError(t, err)

	js.publishErr = nats.ErrNoResponders
	err = p.FileDeleted(context.Background(), "pdf", &simpleupload.Record{ID: "x"})
	assert.ErrorIs(t, err, nats.ErrNoResponders)
}

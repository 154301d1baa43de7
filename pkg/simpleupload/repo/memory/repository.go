package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Repository implements simpleupload.Repository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	records map[string]*simpleupload.Record
	now     func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		records: make(map[string]*simpleupload.Record),
		now:     time.Now,
	}
}

func (r *Repository) Create(ctx context.Context, filename, filePath string) (*simpleupload.Record, error) {
	record := &simpleupload.Record{
		ID:         uuid.NewString(),
		Filename:   filename,
		FilePath:   filePath,
		UploadDate: r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	recordCopy := *record
	r.records[record.ID] = &recordCopy

	return record, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*simpleupload.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[id]
	if !exists {
		return nil, simpleupload.ErrNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) Update(ctx context.Context, id string, update simpleupload.RecordUpdate) (*simpleupload.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[id]
	if !exists {
		return nil, simpleupload.ErrNotFound
	}

	if update.Filename != nil {
		record.Filename = *update.Filename
	}
	if update.FilePath != nil {
		record.FilePath = *update.FilePath
	}

	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return simpleupload.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// List returns copies of all records ordered by upload date
func (r *Repository) List(ctx context.Context) ([]*simpleupload.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*simpleupload.Record, 0, len(r.records))
	for _, record := range r.records {
		recordCopy := *record
		records = append(records, &recordCopy)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].UploadDate.Equal(records[j].UploadDate) {
			return records[i].ID < records[j].ID
		}
		return records[i].UploadDate.Before(records[j].UploadDate)
	})
	return records, nil
}

package simpleupload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ReconcileConfig controls a Reconciler.
type ReconcileConfig struct {
	// Interval between background runs. Zero disables the ticker.
	Interval time.Duration
	// MinAge protects recently written files, which may belong to an
	// in-flight create or update, from being treated as orphans.
	MinAge time.Duration
	// RemoveOrphans deletes orphaned files older than MinAge.
	RemoveOrphans bool
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Variant         string    `json:"variant"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
	FilesChecked    int       `json:"filesChecked"`
	RecordsChecked  int       `json:"recordsChecked"`
	OrphanedFiles   []string  `json:"orphanedFiles"`
	DanglingRecords []string  `json:"danglingRecords"`
	RemovedOrphans  []string  `json:"removedOrphans"`
}

// Reconciler compares stored files with records and reports orphaned
// files and dangling records. Only orphans are ever repaired.
type Reconciler struct {
	blobs  *BlobStore
	repo   Repository
	config ReconcileConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewReconciler creates a Reconciler over the given store and repository.
func NewReconciler(blobs *BlobStore, repo Repository, config ReconcileConfig, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		blobs:  blobs,
		repo:   repo,
		config: config,
		logger: logger.With("component", "reconcile", "variant", blobs.Policy().Name),
		now:    time.Now,
	}
}

// Start launches the background ticker. It is a no-op when Interval is zero.
func (r *Reconciler) Start(ctx context.Context) {
	if r.config.Interval <= 0 {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(runCtx)

	r.logger.Info("Reconciliation started", "interval", r.config.Interval.String())
}

// Stop halts the background ticker and waits for it to exit.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("Reconciliation stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrReconcileInProgress) {
				r.logger.Error("Reconciliation failed", "error", err)
			}
		}
	}
}

// ErrReconcileInProgress is returned when a run is already executing.
var ErrReconcileInProgress = errors.New("reconciliation already in progress")

// RunOnce performs one reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrReconcileInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	variant := r.blobs.Policy().Name
	report := &ReconcileReport{
		Variant:         variant,
		StartedAt:       r.now().UTC(),
		OrphanedFiles:   []string{},
		DanglingRecords: []string{},
		RemovedOrphans:  []string{},
	}

	// Records are listed before files so that a file placed by a create
	// running concurrently shows up as a young orphan rather than a
	// record pointing at nothing.
	records, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	files, err := r.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	report.RecordsChecked = len(records)
	report.FilesChecked = len(files)

	stored := make(map[string]ObjectInfo, len(files))
	for _, f := range files {
		stored[f.Name] = f
	}

	referenced := make(map[string]struct{}, len(records))
	for _, rec := range records {
		name, err := r.blobs.NameOf(rec.FilePath)
		if err != nil {
			report.DanglingRecords = append(report.DanglingRecords, rec.ID)
			continue
		}
		referenced[name] = struct{}{}
		if _, ok := stored[name]; !ok {
			report.DanglingRecords = append(report.DanglingRecords, rec.ID)
		}
	}

	cutoff := r.now().Add(-r.config.MinAge)
	for _, f := range files {
		if _, ok := referenced[f.Name]; ok {
			continue
		}
		report.OrphanedFiles = append(report.OrphanedFiles, f.Name)
		if !r.config.RemoveOrphans || f.ModTime.After(cutoff) {
			continue
		}
		if err := r.blobs.Remove(ctx, f.Name); err != nil && !errors.Is(err, ErrFileNotFound) {
			r.logger.Warn("Failed to remove orphaned file", "filename", f.Name, "error", err)
			continue
		}
		report.RemovedOrphans = append(report.RemovedOrphans, f.Name)
	}

	sort.Strings(report.OrphanedFiles)
	sort.Strings(report.DanglingRecords)
	sort.Strings(report.RemovedOrphans)
	report.CompletedAt = r.now().UTC()

	reconcileRunsTotal.WithLabelValues(variant).Inc()
	reconcileDurationSeconds.WithLabelValues(variant).Observe(report.CompletedAt.Sub(report.StartedAt).Seconds())
	reconcileIssuesTotal.WithLabelValues(variant, "orphaned_file").Add(float64(len(report.OrphanedFiles)))
	reconcileIssuesTotal.WithLabelValues(variant, "dangling_record").Add(float64(len(report.DanglingRecords)))

	r.logger.Info("Reconciliation completed",
		"files_checked", report.FilesChecked,
		"records_checked", report.RecordsChecked,
		"orphaned_files", len(report.OrphanedFiles),
		"dangling_records", len(report.DanglingRecords),
		"removed_orphans", len(report.RemovedOrphans),
	)

	return report, nil
}

// package tasks implements the video ingestion and reconciliation pipeline.
//
// The core abstraction is CatalogEngine, which turns a remote folder listing
// into an optimistic catalog of playable-until-proven-otherwise records, then
// upgrades compatibility and duration data in the background without
// disturbing what the UI already renders. Operations emit progress updates
// via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcampolo/reeldeck/internal/duration"
	"github.com/mcampolo/reeldeck/internal/library"
	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/probe"
	"github.com/mcampolo/reeldeck/internal/services"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// CatalogEngine defines operations for loading and reconciling a video catalog.
type CatalogEngine interface {
	// Load fetches the folder listing and constructs optimistic records:
	// thumbnail from path, duration from the metadata heuristic, playability
	// unknown. Returns the records as rendered, before any verification.
	Load(ctx context.Context, folder string, appendToExisting bool) ([]models.VideoRecord, error)

	// Reconcile upgrades every unverified record in place: stream links,
	// playability probes, durations. Per-record failures never abort the batch.
	Reconcile(ctx context.Context, progress chan<- ProgressUpdate) error

	// LoadAndReconcile performs Load, then schedules Reconcile after a short
	// delay so the optimistic render commits first. The returned channel
	// yields the reconcile error (or nil) exactly once.
	LoadAndReconcile(ctx context.Context, folder string, appendToExisting bool, progress chan<- ProgressUpdate) ([]models.VideoRecord, <-chan error, error)
}

// LibraryEngine implements CatalogEngine against a storage provider.
// Contains dependencies on the provider, prober, and duration extractor.
type LibraryEngine struct {
	provider   services.Provider
	prober     *probe.Prober
	durations  *duration.Extractor
	catalog    *library.Catalog
	panels     *library.PanelState
	logger     *log.Logger
	extensions map[string]bool
	delay      time.Duration
}

var _ CatalogEngine = (*LibraryEngine)(nil)

// EngineOption configures a LibraryEngine.
type EngineOption func(*LibraryEngine)

// WithLogger attaches a logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *LibraryEngine) { e.logger = l }
}

// WithExtensions restricts the listing to the given video file extensions
// (without dots). An empty set keeps every file.
func WithExtensions(exts []string) EngineOption {
	return func(e *LibraryEngine) {
		e.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			e.extensions["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
	}
}

// WithReconcileDelay overrides the pause between the optimistic return and
// the background reconcile (default 100ms).
func WithReconcileDelay(d time.Duration) EngineOption {
	return func(e *LibraryEngine) { e.delay = d }
}

// NewLibraryEngine creates a LibraryEngine with the provided collaborators.
func NewLibraryEngine(provider services.Provider, prober *probe.Prober, durations *duration.Extractor, opts ...EngineOption) *LibraryEngine {
	e := &LibraryEngine{
		provider:  provider,
		prober:    prober,
		durations: durations,
		catalog:   library.NewCatalog(),
		panels:    library.NewPanelState(),
		delay:     100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exposes the live record store.
func (e *LibraryEngine) Catalog() *library.Catalog { return e.catalog }

// Panels exposes the two-panel arrangement derived from the catalog.
func (e *LibraryEngine) Panels() *library.PanelState { return e.panels }

// DeleteRecord removes a record from the catalog and from the panel that
// holds it. An in-flight reconcile patch for the identity becomes a no-op.
func (e *LibraryEngine) DeleteRecord(path string) bool {
	if col, _, ok := e.panels.Holds(path); ok {
		e.panels.Delete(path, col)
	}
	return e.catalog.Delete(path)
}

// Load fetches the listing and constructs optimistic records.
//
// On append failure the previously loaded records are preserved; on
// fresh-load failure the catalog is cleared.
func (e *LibraryEngine) Load(ctx context.Context, folder string, appendToExisting bool) ([]models.VideoRecord, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("%w: storage provider not initialized", shared.ErrServiceUnavailable)
	}

	descriptors, err := e.provider.List(ctx, folder)
	if err != nil {
		if !appendToExisting {
			e.catalog.Clear()
			e.panels.Derive(nil)
		}
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	records := make([]models.VideoRecord, 0, len(descriptors))
	for _, desc := range descriptors {
		if !e.isVideo(desc.Path) {
			continue
		}
		records = append(records, models.VideoRecord{
			ID:               shared.GenerateID(),
			Path:             desc.Path,
			Name:             desc.Name,
			Size:             desc.Size,
			ProviderMetadata: desc.ProviderMetadata,
			ThumbnailURL:     e.provider.ThumbnailURL(desc.Path),
			Duration:         duration.FromMetadata(desc.ProviderMetadata),
			Compatibility:    models.CompatUnknown,
		})
	}

	if appendToExisting {
		e.catalog.Append(records)
	} else {
		e.catalog.Replace(records)
	}
	e.panels.Derive(e.catalog.Paths())

	if e.logger != nil {
		e.logger.Info("loaded folder", "folder", folder, "records", len(records), "append", appendToExisting)
	}
	return e.catalog.Snapshot(), nil
}

func (e *LibraryEngine) isVideo(path string) bool {
	if len(e.extensions) == 0 {
		return true
	}
	return e.extensions[strings.ToLower(filepath.Ext(path))]
}

// Reconcile upgrades placeholder data on every unverified record.
//
// Steps, each tolerant of per-record failure:
//  1. resolve a stream link for every record lacking one
//  2. probe playability, patching the live catalog as each verdict lands
//  3. extract durations, patching the live catalog as each settles
//
// All patches key on path against the current catalog, so a record the user
// deleted mid-reconcile is never resurrected.
func (e *LibraryEngine) Reconcile(ctx context.Context, progress chan<- ProgressUpdate) error {
	batch := e.catalog.Snapshot()
	if len(batch) == 0 {
		sendProgress(progress, reconcileDoneUpdate(0))
		return nil
	}

	total := len(batch)
	for i := range batch {
		rec := &batch[i]
		if rec.StreamURL != "" {
			continue
		}
		sendProgress(progress, resolveStreamUpdate(i+1, total, rec))

		link, err := e.provider.TemporaryLink(ctx, rec.Path)
		if err != nil {
			// Unavailable now, retry on the next reconcile.
			if e.logger != nil {
				e.logger.Warn("stream link unavailable", "path", rec.Path, "err", err)
			}
			continue
		}
		rec.StreamURL = link
		e.catalog.PatchStreamURL(rec.Path, link)
	}

	// Records that never got a stream link have nothing to probe against;
	// they stay unchecked and the next reconcile retries them.
	probeBatch := make([]models.VideoRecord, 0, len(batch))
	for _, rec := range batch {
		if !rec.CheckedWithBrowser && rec.StreamURL == "" {
			continue
		}
		probeBatch = append(probeBatch, rec)
	}

	counter := newCounter()

	e.prober.ProbeAll(ctx, probeBatch, func(res probe.Result) {
		if res.Checked {
			e.catalog.PatchProbe(res.Path, res.Compatible, res.Reason)
		}
		if res.Duration > 0 {
			e.catalog.PatchDuration(res.Path, res.Duration)
		}

		name := res.Path
		if rec, ok := e.catalog.Get(res.Path); ok {
			name = rec.Name
		}
		sendProgress(progress, probeResolvedUpdate(counter.next(), total, res.Path, name, res.Compatible))
	})

	// Durations run against the post-probe snapshot so records whose probe
	// already measured a duration pass straight through.
	durationCounter := newCounter()
	e.durations.ExtractBatch(ctx, e.catalog.Snapshot(), func(r duration.BatchResult) {
		e.catalog.PatchDuration(r.Path, r.Duration)
		sendProgress(progress, durationResolvedUpdate(durationCounter.next(), total, r.Path, models.FormatClock(r.Duration)))
	})

	sendProgress(progress, reconcileDoneUpdate(total))
	return ctx.Err()
}

// LoadAndReconcile loads optimistically and schedules the reconcile pass
// after the configured delay, mirroring the render-first-verify-later flow.
func (e *LibraryEngine) LoadAndReconcile(ctx context.Context, folder string, appendToExisting bool, progress chan<- ProgressUpdate) ([]models.VideoRecord, <-chan error, error) {
	sendProgress(progress, fetchListingUpdate(folder))

	records, err := e.Load(ctx, folder, appendToExisting)
	if err != nil {
		return nil, nil, err
	}
	sendProgress(progress, listingLoadedUpdate(folder, len(records)))

	done := make(chan error, 1)
	go func() {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			done <- ctx.Err()
			return
		}
		done <- e.Reconcile(ctx, progress)
	}()

	return records, done, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// counter hands out 1-based step numbers to concurrent callbacks.
type counter struct {
	mu sync.Mutex
	n  int
}

func newCounter() *counter { return &counter{} }

func (c *counter) next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

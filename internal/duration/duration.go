// Package duration extracts playback lengths for catalog records through a
// prioritized source chain: provider metadata first (a cheap well-known field,
// then a bounded deep search), falling back to loading the stream itself.
//
// Extraction failures are silent; a record that defeats every source keeps the
// zero duration, which renders as the "0:00" sentinel.
package duration

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/probe"
)

// maxSearchDepth bounds the deep metadata traversal so cyclic or degenerate
// provider metadata cannot stall extraction.
const maxSearchDepth = 4

// Extractor resolves durations for batches of records.
type Extractor struct {
	newPlayer   probe.PlayerFactory
	timeout     time.Duration
	concurrency int
	groupPause  time.Duration
	logger      *log.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout overrides the slow-path stream load timeout (default 3s).
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithConcurrency overrides the extraction group size (default 5).
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithGroupPause overrides the pause between concurrent groups (default 50ms).
func WithGroupPause(d time.Duration) Option {
	return func(e *Extractor) { e.groupPause = d }
}

// WithLogger attaches a logger for per-record diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor whose slow path loads streams through
// players from factory.
func NewExtractor(factory probe.PlayerFactory, opts ...Option) *Extractor {
	e := &Extractor{
		newPlayer:   factory,
		timeout:     3 * time.Second,
		concurrency: 5,
		groupPause:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromMetadata reads the well-known duration field the provider embeds in a
// listing entry (milliseconds under media_info.metadata.duration). This is the
// fast heuristic the fetcher applies at optimistic construction time.
func FromMetadata(metadata map[string]any) time.Duration {
	if metadata == nil {
		return 0
	}
	mediaInfo, ok := metadata["media_info"].(map[string]any)
	if !ok {
		return 0
	}
	inner, ok := mediaInfo["metadata"].(map[string]any)
	if !ok {
		return 0
	}
	if ms, ok := numeric(inner["duration"]); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 0
}

// SearchMetadata recursively searches the metadata graph for any field
// literally named "duration" (milliseconds), bounded to maxSearchDepth. The
// first match wins.
func SearchMetadata(metadata map[string]any) time.Duration {
	ms, _ := searchDuration(metadata, 1)
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func searchDuration(value any, depth int) (int64, bool) {
	if depth > maxSearchDepth {
		return 0, false
	}

	switch v := value.(type) {
	case map[string]any:
		if ms, ok := numeric(v["duration"]); ok {
			return ms, true
		}
		for _, child := range v {
			if ms, ok := searchDuration(child, depth+1); ok {
				return ms, true
			}
		}
	case []any:
		for _, child := range v {
			if ms, ok := searchDuration(child, depth+1); ok {
				return ms, true
			}
		}
	}
	return 0, false
}

func numeric(value any) (int64, bool) {
	switch n := value.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Extract resolves the duration for one record, stopping at the first source
// that succeeds. A record that already has a duration is returned untouched.
func (e *Extractor) Extract(ctx context.Context, rec models.VideoRecord) time.Duration {
	if rec.DurationKnown() {
		return rec.Duration
	}

	if d := FromMetadata(rec.ProviderMetadata); d > 0 {
		return d
	}
	if d := SearchMetadata(rec.ProviderMetadata); d > 0 {
		return d
	}

	return e.fromStream(ctx, rec)
}

// fromStream is the slow path: load the stream and read its reported duration.
// Any failure, including the timeout, falls back to the zero sentinel.
func (e *Extractor) fromStream(ctx context.Context, rec models.VideoRecord) time.Duration {
	if rec.StreamURL == "" {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	player := e.newPlayer()
	defer player.Dispose()

	type loaded struct {
		md  *probe.Metadata
		err error
	}
	done := make(chan loaded, 1)
	go func() {
		md, err := player.LoadMetadata(ctx, rec.StreamURL)
		done <- loaded{md: md, err: err}
	}()

	select {
	case l := <-done:
		if l.err != nil || l.md == nil {
			if e.logger != nil {
				e.logger.Debug("duration load failed", "path", rec.Path, "err", l.err)
			}
			return 0
		}
		return l.md.Duration
	case <-ctx.Done():
		return 0
	}
}

// BatchResult is one identity-keyed extraction outcome. Completion order is
// not preserved; consumers must patch by path.
type BatchResult struct {
	Path     string
	Duration time.Duration
}

// ExtractBatch resolves durations for a batch. Records that already carry a
// duration pass through untouched and never trigger a probe. The rest are
// processed in fixed-size concurrent groups with a short pause between groups
// to yield to the UI. onResolved fires per record as its extraction settles
// and may be invoked concurrently.
func (e *Extractor) ExtractBatch(ctx context.Context, records []models.VideoRecord, onResolved func(BatchResult)) []BatchResult {
	results := make([]BatchResult, 0, len(records))
	resolve := func(r BatchResult) {
		if onResolved != nil {
			onResolved(r)
		}
	}

	var pending []models.VideoRecord
	for _, rec := range records {
		if rec.DurationKnown() {
			r := BatchResult{Path: rec.Path, Duration: rec.Duration}
			results = append(results, r)
			resolve(r)
			continue
		}
		pending = append(pending, rec)
	}

	for start := 0; start < len(pending); start += e.concurrency {
		if ctx.Err() != nil {
			break
		}

		end := start + e.concurrency
		if end > len(pending) {
			end = len(pending)
		}
		group := pending[start:end]

		groupResults := make([]BatchResult, len(group))
		var wg sync.WaitGroup
		for i, rec := range group {
			wg.Add(1)
			go func(i int, rec models.VideoRecord) {
				defer wg.Done()
				r := BatchResult{Path: rec.Path, Duration: e.Extract(ctx, rec)}
				groupResults[i] = r
				resolve(r)
			}(i, rec)
		}
		wg.Wait()
		results = append(results, groupResults...)

		if end < len(pending) && e.groupPause > 0 {
			time.Sleep(e.groupPause)
		}
	}

	return results
}

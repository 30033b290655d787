package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mcampolo/reeldeck/internal/duration"
	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/probe"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// mockProvider is a test double for services.Provider.
type mockProvider struct {
	descriptors map[string][]models.FileDescriptor
	listErr     error
	linkErr     map[string]error
	linkCalls   int
	mu          sync.Mutex
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (m *mockProvider) List(ctx context.Context, path string) ([]models.FileDescriptor, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if descs, ok := m.descriptors[path]; ok {
		return descs, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPathNotFound, path)
}

func (m *mockProvider) TemporaryLink(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	m.linkCalls++
	m.mu.Unlock()
	if err, ok := m.linkErr[path]; ok {
		return "", err
	}
	return "https://dl.example.com" + path, nil
}

func (m *mockProvider) ThumbnailURL(path string) string {
	return "https://thumb.example.com" + path
}

// stubPlayer resolves every probe as a playable 640x480 stream.
type stubPlayer struct {
	duration time.Duration
}

func (s *stubPlayer) LoadMetadata(ctx context.Context, url string) (*probe.Metadata, error) {
	return &probe.Metadata{Width: 640, Height: 480, Duration: s.duration}, nil
}

func (s *stubPlayer) AttemptDecode(ctx context.Context, url string, seekOffset time.Duration) error {
	return nil
}

func (s *stubPlayer) Dispose() {}

func newEngine(provider *mockProvider, opts ...EngineOption) *LibraryEngine {
	factory := func() probe.Player { return &stubPlayer{duration: 95 * time.Second} }
	prober := probe.NewProber(factory, probe.WithTimeout(time.Second))
	extractor := duration.NewExtractor(factory, duration.WithGroupPause(0))
	return NewLibraryEngine(provider, prober, extractor, opts...)
}

func desc(name, path string) models.FileDescriptor {
	return models.FileDescriptor{Name: name, Path: path}
}

func TestLoadOptimisticConstruction(t *testing.T) {
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/videos": {
			desc("a.mp4", "/videos/a.mp4"),
			desc("b.mp4", "/videos/b.mp4"),
			desc("c.mp4", "/videos/c.mp4"),
		},
	}}
	engine := newEngine(provider)

	records, err := engine.Load(context.Background(), "/videos", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	for _, rec := range records {
		if rec.FormattedDuration() != "0:00" {
			t.Errorf("%s duration = %q, want the 0:00 sentinel", rec.Path, rec.FormattedDuration())
		}
		if rec.Compatibility != models.CompatUnknown {
			t.Errorf("%s compatibility = %v, want unknown before any probe", rec.Path, rec.Compatibility)
		}
		if rec.CheckedWithBrowser {
			t.Errorf("%s checked = true before any probe", rec.Path)
		}
		if rec.ThumbnailURL == "" {
			t.Errorf("%s thumbnail missing; it derives from the path immediately", rec.Path)
		}
		if rec.ID == "" {
			t.Errorf("%s has no surrogate id", rec.Path)
		}
	}

	// Every loaded identity starts in the source panel.
	if got := engine.Panels().Source(); len(got) != 3 {
		t.Errorf("Source() = %v, want all three", got)
	}
}

func TestLoadFastDurationHeuristic(t *testing.T) {
	withDuration := desc("a.mp4", "/a.mp4")
	withDuration.ProviderMetadata = map[string]any{
		"media_info": map[string]any{"metadata": map[string]any{"duration": float64(83000)}},
	}
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/": {withDuration},
	}}
	engine := newEngine(provider)

	records, err := engine.Load(context.Background(), "/", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if records[0].FormattedDuration() != "1:23" {
		t.Errorf("duration = %q, want 1:23 from the metadata heuristic", records[0].FormattedDuration())
	}
}

func TestLoadFiltersByExtension(t *testing.T) {
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/": {desc("a.mp4", "/a.mp4"), desc("notes.txt", "/notes.txt")},
	}}
	engine := newEngine(provider, WithExtensions([]string{"mp4", "mov"}))

	records, err := engine.Load(context.Background(), "/", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 || records[0].Path != "/a.mp4" {
		t.Errorf("records = %v, want only /a.mp4", records)
	}
}

func TestLoadAppendDeduplicates(t *testing.T) {
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/one": {desc("a.mp4", "/a.mp4")},
		"/two": {desc("a.mp4", "/a.mp4")},
	}}
	engine := newEngine(provider)

	if _, err := engine.Load(context.Background(), "/one", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	records, err := engine.Load(context.Background(), "/two", true)
	if err != nil {
		t.Fatalf("Load(append) error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("catalog length = %d after duplicate append, want 1", len(records))
	}
}

func TestLoadFailureSemantics(t *testing.T) {
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/ok": {desc("a.mp4", "/a.mp4")},
	}}
	engine := newEngine(provider)

	if _, err := engine.Load(context.Background(), "/ok", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Append failure preserves prior records.
	if _, err := engine.Load(context.Background(), "/missing", true); err == nil {
		t.Fatal("Load(missing, append) expected error")
	}
	if engine.Catalog().Len() != 1 {
		t.Errorf("catalog length = %d after append failure, want preserved 1", engine.Catalog().Len())
	}

	// Fresh-load failure clears the catalog.
	if _, err := engine.Load(context.Background(), "/missing", false); err == nil {
		t.Fatal("Load(missing, fresh) expected error")
	}
	if engine.Catalog().Len() != 0 {
		t.Errorf("catalog length = %d after fresh-load failure, want cleared", engine.Catalog().Len())
	}
}

func TestReconcileUpgradesEveryRecord(t *testing.T) {
	// Three descriptors with no provider duration metadata: optimistic render
	// shows sentinels and unknown compatibility; after reconciliation every
	// record is checked with a definite verdict and a real duration.
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/videos": {
			desc("a.mp4", "/videos/a.mp4"),
			desc("b.mp4", "/videos/b.mp4"),
			desc("c.mp4", "/videos/c.mp4"),
		},
	}}
	engine := newEngine(provider)

	if _, err := engine.Load(context.Background(), "/videos", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := engine.Reconcile(context.Background(), nil); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	for _, rec := range engine.Catalog().Snapshot() {
		if !rec.CheckedWithBrowser {
			t.Errorf("%s checked = false after reconcile", rec.Path)
		}
		if !rec.Compatibility.Known() {
			t.Errorf("%s compatibility = %v, want definite", rec.Path, rec.Compatibility)
		}
		if rec.StreamURL == "" {
			t.Errorf("%s stream URL unresolved", rec.Path)
		}
		if rec.FormattedDuration() == "0:00" {
			t.Errorf("%s duration still the sentinel", rec.Path)
		}
	}
}

func TestReconcileToleratesStreamFailures(t *testing.T) {
	provider := &mockProvider{
		descriptors: map[string][]models.FileDescriptor{
			"/videos": {desc("a.mp4", "/videos/a.mp4"), desc("b.mp4", "/videos/b.mp4")},
		},
		linkErr: map[string]error{"/videos/a.mp4": shared.ErrStreamUnavailable},
	}
	engine := newEngine(provider)

	if _, err := engine.Load(context.Background(), "/videos", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := engine.Reconcile(context.Background(), nil); err != nil {
		t.Fatalf("Reconcile() error = %v, one bad record must not abort the batch", err)
	}

	good, _ := engine.Catalog().Get("/videos/b.mp4")
	if good.StreamURL == "" {
		t.Error("healthy record's stream URL missing after a sibling failed")
	}
	bad, _ := engine.Catalog().Get("/videos/a.mp4")
	if bad.StreamURL != "" {
		t.Error("failed record gained a stream URL from nowhere")
	}
}

func TestReconcileLinklessRecordStaysRetryable(t *testing.T) {
	// A record whose stream link could not be resolved must not be probed
	// against an empty URL; it keeps its unknown verdict until a later
	// reconcile succeeds in minting a link.
	provider := &mockProvider{
		descriptors: map[string][]models.FileDescriptor{
			"/videos": {desc("a.mp4", "/videos/a.mp4")},
		},
		linkErr: map[string]error{"/videos/a.mp4": shared.ErrStreamUnavailable},
	}
	engine := newEngine(provider)

	if _, err := engine.Load(context.Background(), "/videos", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := engine.Reconcile(context.Background(), nil); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	rec, _ := engine.Catalog().Get("/videos/a.mp4")
	if rec.CheckedWithBrowser {
		t.Error("linkless record marked checked; it was never probed")
	}
	if rec.Compatibility != models.CompatUnknown {
		t.Errorf("linkless record verdict = %v, want unknown", rec.Compatibility)
	}

	// The link becomes available; the next pass upgrades the record.
	provider.mu.Lock()
	provider.linkErr = nil
	provider.mu.Unlock()

	if err := engine.Reconcile(context.Background(), nil); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	rec, _ = engine.Catalog().Get("/videos/a.mp4")
	if !rec.CheckedWithBrowser {
		t.Error("record still unchecked after the link recovered")
	}
	if rec.Compatibility != models.CompatOK {
		t.Errorf("verdict = %v, want compatible after a successful probe", rec.Compatibility)
	}
	if rec.StreamURL == "" {
		t.Error("stream URL still missing after the link recovered")
	}
}

func TestReconcileStalePatchSkipsDeleted(t *testing.T) {
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/videos": {desc("a.mp4", "/videos/a.mp4"), desc("b.mp4", "/videos/b.mp4")},
	}}
	engine := newEngine(provider)

	if _, err := engine.Load(context.Background(), "/videos", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// User deletes a record between the snapshot and the patches.
	engine.DeleteRecord("/videos/a.mp4")

	if err := engine.Reconcile(context.Background(), nil); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, ok := engine.Catalog().Get("/videos/a.mp4"); ok {
		t.Error("reconcile resurrected a deleted record")
	}
	if engine.Catalog().Len() != 1 {
		t.Errorf("catalog length = %d, want 1", engine.Catalog().Len())
	}
}

func TestLoadAndReconcileDelaysVerification(t *testing.T) {
	provider := &mockProvider{descriptors: map[string][]models.FileDescriptor{
		"/videos": {desc("a.mp4", "/videos/a.mp4")},
	}}
	engine := newEngine(provider, WithReconcileDelay(20*time.Millisecond))

	progress := make(chan ProgressUpdate, 64)
	records, done, err := engine.LoadAndReconcile(context.Background(), "/videos", false, progress)
	if err != nil {
		t.Fatalf("LoadAndReconcile() error = %v", err)
	}

	// The optimistic result is immediate and unverified.
	if records[0].CheckedWithBrowser {
		t.Error("optimistic record already verified")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("reconcile error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile never completed")
	}

	rec, _ := engine.Catalog().Get("/videos/a.mp4")
	if !rec.CheckedWithBrowser {
		t.Error("record not verified after reconcile completed")
	}

	// Progress must have flowed for at least the listing and probe phases.
	phases := map[Phase]bool{}
	for {
		select {
		case update := <-progress:
			phases[update.Phase] = true
			continue
		default:
		}
		break
	}
	if !phases[FetchListing] {
		t.Error("no FetchListing progress emitted")
	}
	if !phases[ProbeBatch] {
		t.Error("no ProbeBatch progress emitted")
	}
}

func TestLoadNoProvider(t *testing.T) {
	engine := newEngine(&mockProvider{})
	engine.provider = nil

	_, err := engine.Load(context.Background(), "/", false)
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("Load() error = %v, want ErrServiceUnavailable", err)
	}
}

package probe

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mcampolo/reeldeck/internal/models"
)

// fakePlayer scripts player behavior per probe attempt.
type fakePlayer struct {
	metadata    *Metadata
	metadataErr error
	decodeErr   error
	// hang makes LoadMetadata block until the context dies, simulating a
	// media element that never fires any event.
	hang bool

	mu       sync.Mutex
	loadURLs []string
	decodes  int
	disposed int
	seekSeen time.Duration
}

func (f *fakePlayer) LoadMetadata(ctx context.Context, url string) (*Metadata, error) {
	f.mu.Lock()
	f.loadURLs = append(f.loadURLs, url)
	f.mu.Unlock()

	if f.hang {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	}
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return f.metadata, nil
}

func (f *fakePlayer) AttemptDecode(ctx context.Context, url string, seekOffset time.Duration) error {
	f.mu.Lock()
	f.decodes++
	f.seekSeen = seekOffset
	f.mu.Unlock()
	return f.decodeErr
}

func (f *fakePlayer) Dispose() {
	f.mu.Lock()
	f.disposed++
	f.mu.Unlock()
}

func factoryOf(p *fakePlayer) PlayerFactory {
	return func() Player { return p }
}

func TestProbeOneCompatible(t *testing.T) {
	player := &fakePlayer{metadata: &Metadata{Width: 1920, Height: 1080, Duration: 60 * time.Second}}
	prober := NewProber(factoryOf(player))

	res := prober.ProbeOne(context.Background(), "https://cdn/x.mp4", "/x.mp4")

	if !res.Compatible {
		t.Fatalf("ProbeOne() compatible = false, reason %q", res.Reason)
	}
	if !res.Checked {
		t.Error("Checked = false, want true after a full probe")
	}
	if res.Width != 1920 || res.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", res.Width, res.Height)
	}
	if player.disposed == 0 {
		t.Error("player was never disposed")
	}
}

func TestProbeOneSeekOffset(t *testing.T) {
	tc := []struct {
		name     string
		duration time.Duration
		want     time.Duration
	}{
		{name: "long file caps at one second", duration: 60 * time.Second, want: time.Second},
		{name: "short file seeks to ten percent", duration: 5 * time.Second, want: 500 * time.Millisecond},
		{name: "unknown duration keeps one second", duration: 0, want: time.Second},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{metadata: &Metadata{Width: 640, Height: 480, Duration: tt.duration}}
			prober := NewProber(factoryOf(player))

			prober.ProbeOne(context.Background(), "u", "/p")

			if player.seekSeen != tt.want {
				t.Errorf("seek offset = %v, want %v", player.seekSeen, tt.want)
			}
		})
	}
}

func TestProbeOneDimensionVerdicts(t *testing.T) {
	tc := []struct {
		name       string
		metadata   *Metadata
		wantReason string
	}{
		{name: "zero dimensions is audio-only", metadata: &Metadata{Width: 0, Height: 0}, wantReason: ReasonAudioOnly},
		{name: "zero height only", metadata: &Metadata{Width: 640, Height: 0}, wantReason: ReasonAudioOnly},
		{name: "below minimum", metadata: &Metadata{Width: 8, Height: 8}, wantReason: ReasonInvalidDims},
		{name: "above maximum", metadata: &Metadata{Width: 9000, Height: 1080}, wantReason: ReasonInvalidDims},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{metadata: tt.metadata}
			prober := NewProber(factoryOf(player))

			res := prober.ProbeOne(context.Background(), "u", "/p")

			if res.Compatible {
				t.Fatal("ProbeOne() compatible = true, want incompatible")
			}
			if res.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", res.Reason, tt.wantReason)
			}
			if player.decodes != 0 {
				t.Error("decode attempted despite failed dimension check")
			}
		})
	}
}

func TestProbeOneDecodeFailure(t *testing.T) {
	player := &fakePlayer{
		metadata:  &Metadata{Width: 1280, Height: 720, Duration: 30 * time.Second},
		decodeErr: fmt.Errorf("%w: h265 profile", ErrDecode),
	}
	prober := NewProber(factoryOf(player))

	res := prober.ProbeOne(context.Background(), "u", "/p")

	if res.Compatible {
		t.Fatal("compatible = true, want incompatible for decode failure")
	}
	if res.Reason != ReasonCodec {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonCodec)
	}
}

func TestProbeOneAbortedIsCompatible(t *testing.T) {
	player := &fakePlayer{metadataErr: fmt.Errorf("%w: cancelled", ErrAborted)}
	prober := NewProber(factoryOf(player))

	res := prober.ProbeOne(context.Background(), "u", "/p")

	if !res.Compatible {
		t.Errorf("aborted load should resolve compatible, got reason %q", res.Reason)
	}
}

func TestProbeOneNetworkRefreshRetry(t *testing.T) {
	// First attempt fails with a network error; the prober must refresh the
	// URL once and retry against the fresh link.
	calls := 0
	playerOK := &fakePlayer{metadata: &Metadata{Width: 640, Height: 360, Duration: 10 * time.Second}}
	playerBad := &fakePlayer{metadataErr: fmt.Errorf("%w: 403", ErrNetwork)}

	factory := func() Player {
		calls++
		if calls == 1 {
			return playerBad
		}
		return playerOK
	}

	refreshed := ""
	prober := NewProber(factory, WithRefresh(func(ctx context.Context, path string) (string, error) {
		refreshed = path
		return "https://cdn/fresh.mp4", nil
	}))

	res := prober.ProbeOne(context.Background(), "https://cdn/stale.mp4", "/x.mp4")

	if refreshed != "/x.mp4" {
		t.Errorf("refresh called with %q, want /x.mp4", refreshed)
	}
	if !res.Compatible {
		t.Errorf("retry against fresh URL should succeed, got reason %q", res.Reason)
	}
	if len(playerOK.loadURLs) != 1 || playerOK.loadURLs[0] != "https://cdn/fresh.mp4" {
		t.Errorf("retry used %v, want the refreshed URL", playerOK.loadURLs)
	}
}

func TestProbeOneNetworkAfterRefreshIsIncompatible(t *testing.T) {
	player := &fakePlayer{metadataErr: fmt.Errorf("%w: 403", ErrNetwork)}
	prober := NewProber(factoryOf(player), WithRefresh(func(ctx context.Context, path string) (string, error) {
		return "https://cdn/fresh.mp4", nil
	}))

	res := prober.ProbeOne(context.Background(), "https://cdn/stale.mp4", "/x.mp4")

	if res.Compatible {
		t.Fatal("second network failure should be incompatible")
	}
	if res.Reason != ReasonAccess {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonAccess)
	}
}

func TestProbeOneNetworkWithoutRefresherFailsOpen(t *testing.T) {
	player := &fakePlayer{metadataErr: fmt.Errorf("%w: 403", ErrNetwork)}
	prober := NewProber(factoryOf(player))

	res := prober.ProbeOne(context.Background(), "u", "/p")

	if !res.Compatible {
		t.Errorf("stale-looking URL with no refresher should resolve compatible, got %q", res.Reason)
	}
}

func TestProbeOneUnavailablePlayerYieldsNoVerdict(t *testing.T) {
	player := &fakePlayer{metadataErr: fmt.Errorf("%w: ffprobe not installed", ErrUnavailable)}
	prober := NewProber(factoryOf(player))

	res := prober.ProbeOne(context.Background(), "u", "/p")

	if !res.Compatible {
		t.Errorf("unavailable player condemned the file: %q", res.Reason)
	}
	if res.Checked {
		t.Error("Checked = true, want unchecked so the next pass retries")
	}
}

func TestProbeOneUnavailableDuringDecode(t *testing.T) {
	player := &fakePlayer{
		metadata:  &Metadata{Width: 1280, Height: 720, Duration: 30 * time.Second},
		decodeErr: fmt.Errorf("%w: ffmpeg not installed", ErrUnavailable),
	}
	prober := NewProber(factoryOf(player))

	res := prober.ProbeOne(context.Background(), "u", "/p")

	if !res.Compatible || res.Checked {
		t.Errorf("decode-stage environment failure: compatible=%v checked=%v, want compatible and unchecked", res.Compatible, res.Checked)
	}
}

func TestProbeAllUnavailableSkipsHeuristicVeto(t *testing.T) {
	// With no working player the heuristic's extension veto has nothing to
	// combine with; on its own it must not condemn the record.
	player := &fakePlayer{metadataErr: fmt.Errorf("%w: no player", ErrUnavailable)}
	prober := NewProber(factoryOf(player))

	records := []models.VideoRecord{{Path: "/clips/raw.avi", StreamURL: "u"}}

	results := prober.ProbeAll(context.Background(), records, nil)

	if !results[0].Compatible {
		t.Errorf("heuristic alone condemned the record: %q", results[0].Reason)
	}
	if results[0].Checked {
		t.Error("Checked = true, want unchecked without a full probe")
	}
}

func TestProbeOneTimeoutFailsOpen(t *testing.T) {
	// A player that never fires any event must resolve compatible once the
	// hard timeout elapses.
	player := &fakePlayer{hang: true}
	prober := NewProber(factoryOf(player), WithTimeout(50*time.Millisecond))

	start := time.Now()
	res := prober.ProbeOne(context.Background(), "u", "/p")
	elapsed := time.Since(start)

	if !res.Compatible {
		t.Errorf("timeout should fail open, got reason %q", res.Reason)
	}
	if !res.Checked {
		t.Error("Checked = false, want true even on timeout")
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("resolved in %v, before the timeout", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("resolved in %v, far after the timeout", elapsed)
	}
}

func TestProbeAllCombinesHeuristicAndProbe(t *testing.T) {
	// The full probe says compatible, but the heuristic flags the extension;
	// the AND of the two must be incompatible.
	player := &fakePlayer{metadata: &Metadata{Width: 1280, Height: 720, Duration: 20 * time.Second}}
	prober := NewProber(factoryOf(player))

	records := []models.VideoRecord{
		{Path: "/clips/good.mp4", StreamURL: "u1"},
		{Path: "/clips/raw.avi", StreamURL: "u2"},
	}

	results := prober.ProbeAll(context.Background(), records, nil)

	if !results[0].Compatible {
		t.Errorf("good.mp4 = incompatible (%q), want compatible", results[0].Reason)
	}
	if results[1].Compatible {
		t.Error("raw.avi = compatible, heuristic veto should win")
	}
	if results[1].Reason == "" {
		t.Error("vetoed record carries no reason")
	}
}

func TestProbeAllProgressiveCallback(t *testing.T) {
	player := &fakePlayer{metadata: &Metadata{Width: 640, Height: 480}}
	prober := NewProber(factoryOf(player))

	records := []models.VideoRecord{
		{Path: "/a.mp4", StreamURL: "u1"},
		{Path: "/b.mp4", StreamURL: "u2"},
		{Path: "/c.mp4", StreamURL: "u3"},
	}

	var mu sync.Mutex
	seen := map[string]bool{}
	results := prober.ProbeAll(context.Background(), records, func(res Result) {
		mu.Lock()
		seen[res.Path] = true
		mu.Unlock()
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, rec := range records {
		if !seen[rec.Path] {
			t.Errorf("callback never fired for %s", rec.Path)
		}
	}
}

func TestProbeAllSkipsAlreadyChecked(t *testing.T) {
	player := &fakePlayer{metadata: &Metadata{Width: 640, Height: 480}}
	prober := NewProber(factoryOf(player))

	records := []models.VideoRecord{
		{
			Path:               "/done.mp4",
			StreamURL:          "u1",
			Compatibility:      models.CompatFailed,
			CompatibilityError: ReasonCodec,
			CheckedWithBrowser: true,
		},
	}

	results := prober.ProbeAll(context.Background(), records, nil)

	if len(player.loadURLs) != 0 {
		t.Errorf("already-checked record was re-probed: %v", player.loadURLs)
	}
	if results[0].Compatible {
		t.Error("existing verdict lost on replay")
	}
	if results[0].Reason != ReasonCodec {
		t.Errorf("reason = %q, want preserved %q", results[0].Reason, ReasonCodec)
	}
}

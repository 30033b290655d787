package probe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcampolo/reeldeck/internal/models"
)

// RefreshURL re-resolves a stream URL for a path. Used once per probe when a
// network failure suggests the original time-limited link went stale.
type RefreshURL func(ctx context.Context, path string) (string, error)

// Prober verifies browser-playability of video records.
type Prober struct {
	newPlayer PlayerFactory
	refresh   RefreshURL
	timeout   time.Duration
	logger    *log.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithTimeout overrides the per-probe fail-open timeout (default 3s).
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

// WithRefresh installs the stream-URL collaborator used for the single
// stale-link retry.
func WithRefresh(fn RefreshURL) ProberOption {
	return func(p *Prober) { p.refresh = fn }
}

// WithLogger attaches a logger for per-record diagnostics.
func WithLogger(l *log.Logger) ProberOption {
	return func(p *Prober) { p.logger = l }
}

// NewProber creates a Prober that runs each verification against a fresh
// player from factory.
func NewProber(factory PlayerFactory, opts ...ProberOption) *Prober {
	p := &Prober{
		newPlayer: factory,
		timeout:   3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeOne verifies a single stream URL.
//
// The verdict rules, in order:
//   - zero reported dimensions: incompatible (audio-only or corrupted)
//   - dimensions outside [16, 8192] on either axis: incompatible
//   - successful decode-and-seek: compatible, carrying measured dimensions
//   - network failure: refresh the URL once and retry; a second network
//     failure is incompatible (cannot access), no refresher means the stale
//     link gets the benefit of the doubt
//   - aborted load: compatible
//   - decode or unsupported-source failure: incompatible (codec not supported)
//   - player environment unavailable: no verdict, record stays unchecked
//   - no resolution within the timeout: compatible (fail-open)
func (p *Prober) ProbeOne(ctx context.Context, url, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- p.attempt(ctx, url, path, false)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		// Fail open: no confident verdict within budget.
		if p.logger != nil {
			p.logger.Warn("probe timed out, assuming compatible", "path", path)
		}
		return compatible(path, nil)
	}
}

func (p *Prober) attempt(ctx context.Context, url, path string, refreshed bool) Result {
	player := p.newPlayer()
	defer player.Dispose()

	md, err := player.LoadMetadata(ctx, url)
	if err != nil {
		return p.classify(ctx, err, url, path, refreshed)
	}

	if md.Width == 0 || md.Height == 0 {
		return incompatible(path, ReasonAudioOnly)
	}
	if md.Width < minDimension || md.Width > maxDimension ||
		md.Height < minDimension || md.Height > maxDimension {
		return incompatible(path, ReasonInvalidDims)
	}

	seek := time.Second
	if tenth := md.Duration / 10; tenth > 0 && tenth < seek {
		seek = tenth
	}

	if err := player.AttemptDecode(ctx, url, seek); err != nil {
		switch {
		case errors.Is(err, ErrNetwork):
			return p.classify(ctx, err, url, path, refreshed)
		case errors.Is(err, ErrAborted):
			return compatible(path, md)
		case errors.Is(err, ErrUnavailable):
			return p.withoutVerdict(err, path)
		default:
			return incompatible(path, ReasonCodec)
		}
	}

	return compatible(path, md)
}

// classify maps a load failure onto a verdict, consuming the single URL
// refresh when a network error looks like a stale link.
func (p *Prober) classify(ctx context.Context, err error, url, path string, refreshed bool) Result {
	switch {
	case errors.Is(err, ErrNetwork):
		if refreshed {
			return incompatible(path, ReasonAccess)
		}
		if p.refresh == nil {
			// No way to mint a fresh link; treat the stale URL as the
			// likely culprit rather than the file.
			return compatible(path, nil)
		}
		fresh, refreshErr := p.refresh(ctx, path)
		if refreshErr != nil || fresh == "" {
			return compatible(path, nil)
		}
		return p.attempt(ctx, fresh, path, true)
	case errors.Is(err, ErrAborted):
		return compatible(path, nil)
	case errors.Is(err, ErrDecode), errors.Is(err, ErrUnsupported):
		return incompatible(path, ReasonCodec)
	case errors.Is(err, ErrUnavailable):
		return p.withoutVerdict(err, path)
	default:
		return incompatible(path, ReasonUnknown)
	}
}

// withoutVerdict handles a player the probe could not run at all. The record
// is left unchecked so a later reconcile, possibly on a repaired
// environment, gets another shot.
func (p *Prober) withoutVerdict(err error, path string) Result {
	if p.logger != nil {
		p.logger.Warn("player unavailable, leaving record unchecked", "path", path, "err", err)
	}
	return unchecked(path)
}

// ProbeAll verifies a batch of records.
//
// A first, network-free pass applies the filename/codec-token heuristic. The
// second pass runs a full probe on every record regardless of the provisional
// flag and combines the two verdicts with logical AND, so either source
// saying incompatible wins. onResolved fires per record the moment its own
// probe settles, independent of the rest of the batch; completion order is
// not guaranteed and consumers must key on Result.Path.
//
// Records already checked by a full probe are never re-probed; their existing
// verdict is replayed through onResolved.
func (p *Prober) ProbeAll(ctx context.Context, records []models.VideoRecord, onResolved func(Result)) []Result {
	results := make([]Result, len(records))

	var wg sync.WaitGroup
	for i := range records {
		rec := records[i]

		if rec.CheckedWithBrowser {
			results[i] = Result{
				Path:       rec.Path,
				Compatible: rec.Compatibility != models.CompatFailed,
				Reason:     rec.CompatibilityError,
				Duration:   rec.Duration,
				Checked:    true,
			}
			if onResolved != nil {
				onResolved(results[i])
			}
			continue
		}

		provisionalOK, provisionalReason := Heuristic(rec)

		wg.Add(1)
		go func(i int, rec models.VideoRecord) {
			defer wg.Done()

			res := p.ProbeOne(ctx, rec.StreamURL, rec.Path)
			// A non-verdict combines with nothing; the heuristic alone
			// never condemns a record.
			if res.Checked && res.Compatible && !provisionalOK {
				res.Compatible = false
				res.Reason = provisionalReason
			}
			results[i] = res

			if onResolved != nil {
				onResolved(res)
			}
		}(i, rec)
	}
	wg.Wait()

	return results
}

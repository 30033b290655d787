// Package probe implements browser-playability verification for remote video files.
//
// The core abstraction is [Player], a headless media surface that can load
// stream metadata and attempt a short decode. [Prober] drives a Player through
// the verification protocol: dimension sanity checks, a decode-and-seek
// attempt, error classification, and a hard fail-open timeout. Verdicts are
// deliberately biased toward compatible: a false positive surfaces later in
// the player and is recoverable, a false negative silently hides a working
// file from the user.
package probe

import (
	"context"
	"fmt"
	"time"
)

// Classified player failures. Player implementations wrap their native errors
// with one of these so the prober can apply the verdict rules uniformly.
var (
	// ErrNetwork marks a transient fetch failure (connection refused, 4xx/5xx
	// on the stream URL). Usually a stale time-limited link.
	ErrNetwork = fmt.Errorf("network error while fetching media")

	// ErrAborted marks a load cancelled before completion.
	ErrAborted = fmt.Errorf("media load aborted")

	// ErrDecode marks data that was fetched but could not be decoded.
	ErrDecode = fmt.Errorf("media decode failed")

	// ErrUnsupported marks a container or codec the player does not handle.
	ErrUnsupported = fmt.Errorf("media source not supported")

	// ErrUnavailable marks a failure of the player environment itself, such
	// as a missing or non-executable binary. It carries no evidence about
	// the media and must never produce a verdict.
	ErrUnavailable = fmt.Errorf("media player unavailable")
)

// User-facing incompatibility reasons, one per failure class.
const (
	ReasonAudioOnly   = "audio-only or corrupted file"
	ReasonInvalidDims = "invalid video dimensions"
	ReasonCodec       = "codec not supported"
	ReasonAccess      = "cannot access file"
	ReasonUnknown     = "unknown playback error"
)

// Spatial sanity bounds for reported video dimensions, in pixels.
const (
	minDimension = 16
	maxDimension = 8192
)

// Metadata is what a Player learns from loading stream headers.
type Metadata struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
}

// Player is a headless media surface. The browser analogue is a muted,
// metadata-preloading video element; the native implementation shells out to
// ffprobe/ffmpeg.
type Player interface {
	// LoadMetadata fetches enough of the stream at url to report duration,
	// dimensions and codec. Errors wrap one of the classified sentinels.
	LoadMetadata(ctx context.Context, url string) (*Metadata, error)

	// AttemptDecode starts playback, seeks to seekOffset and decodes at least
	// one frame. A nil return means the file is demonstrably playable.
	AttemptDecode(ctx context.Context, url string, seekOffset time.Duration) error

	// Dispose releases any resources held by the player.
	Dispose()
}

// PlayerFactory constructs a fresh Player per probe. Players are single-use.
type PlayerFactory func() Player

// Result is the verdict for one record.
type Result struct {
	Path       string
	Compatible bool
	// Reason is the user-facing incompatibility message; empty when Compatible.
	Reason   string
	Width    int
	Height   int
	Duration time.Duration
	// Checked is true when a full probe ran (or timed out fail-open), as
	// opposed to a verdict from the metadata heuristic alone. It stays
	// false when the player environment was unavailable, leaving the
	// record eligible for a future pass.
	Checked bool
}

func compatible(path string, md *Metadata) Result {
	res := Result{Path: path, Compatible: true, Checked: true}
	if md != nil {
		res.Width = md.Width
		res.Height = md.Height
		res.Duration = md.Duration
	}
	return res
}

func incompatible(path, reason string) Result {
	return Result{Path: path, Compatible: false, Reason: reason, Checked: true}
}

// unchecked is the non-verdict: the probe never ran against the media, so
// the record keeps the benefit of the doubt without being marked checked.
func unchecked(path string) Result {
	return Result{Path: path, Compatible: true}
}

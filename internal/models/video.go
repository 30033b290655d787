package models

import (
	"fmt"
	"time"
)

// Compatibility is the tri-state browser-playability verdict for a video file.
//
// A record starts out [CompatUnknown] and moves to a definite verdict exactly
// once; it never returns to unknown after a full probe has completed.
type Compatibility int

const (
	CompatUnknown Compatibility = iota
	CompatOK
	CompatFailed
)

func (c Compatibility) String() string {
	switch c {
	case CompatOK:
		return "compatible"
	case CompatFailed:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Known returns true once the verdict is definite (either OK or failed).
func (c Compatibility) Known() bool {
	return c == CompatOK || c == CompatFailed
}

// FileDescriptor is one entry of a raw folder listing as returned by the
// storage provider, before any annotation.
type FileDescriptor struct {
	Name             string         `json:"name"`
	Path             string         `json:"path"`
	Size             int64          `json:"size,omitempty"`
	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`
}

// VideoRecord is one remote video file in the catalog.
//
// Path is the durable identity; ID is a surrogate alias generated at
// construction. Records are created with placeholder playability and duration
// state and patched in place by the background reconciliation pass.
type VideoRecord struct {
	ID               string         `json:"id"`
	Path             string         `json:"path"`
	Name             string         `json:"name"`
	Size             int64          `json:"size,omitempty"`
	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`

	// StreamURL is a time-limited playback link, empty until resolved.
	StreamURL string `json:"stream_url,omitempty"`

	// ThumbnailURL is derived from Path with no network round trip.
	ThumbnailURL string `json:"thumbnail_url"`

	// Duration of playback; zero means not yet known.
	Duration time.Duration `json:"-"`

	Compatibility      Compatibility `json:"-"`
	CompatibilityError string        `json:"compatibility_error,omitempty"`

	// CheckedWithBrowser is true once a full decode probe (not just a
	// metadata heuristic) has completed for this record.
	CheckedWithBrowser bool `json:"checked_with_browser"`
}

// DurationKnown reports whether a real duration has been extracted.
func (r *VideoRecord) DurationKnown() bool {
	return r.Duration > 0
}

// FormattedDuration renders the duration as m:ss, with "0:00" as the
// not-yet-known sentinel. The sentinel exists only at this boundary; the
// in-memory representation is a plain [time.Duration].
func (r *VideoRecord) FormattedDuration() string {
	return FormatClock(r.Duration)
}

// FormatClock renders a duration as m:ss (e.g. 83s -> "1:23").
func FormatClock(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Reel is a persisted arrangement of videos: the "selects" panel order saved
// verbatim as playback order.
type Reel struct {
	id        string
	sequence  int
	title     string
	folder    string
	theme     string
	items     []ReelItem
	createdAt time.Time
	updatedAt time.Time
}

// NewReel creates a Reel with the given title and source folder.
// The ID is assigned by the repository on create.
func NewReel(title, folder string) *Reel {
	now := time.Now().UTC()
	return &Reel{
		title:     title,
		folder:    folder,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *Reel) ID() string           { return r.id }
func (r *Reel) Sequence() int        { return r.sequence }
func (r *Reel) Title() string        { return r.title }
func (r *Reel) Folder() string       { return r.folder }
func (r *Reel) Theme() string        { return r.theme }
func (r *Reel) Items() []ReelItem    { return r.items }
func (r *Reel) CreatedAt() time.Time { return r.createdAt }
func (r *Reel) UpdatedAt() time.Time { return r.updatedAt }

func (r *Reel) SetID(id string)           { r.id = id }
func (r *Reel) SetSequence(seq int)       { r.sequence = seq }
func (r *Reel) SetTheme(theme string)     { r.theme = theme }
func (r *Reel) SetItems(items []ReelItem) { r.items = items }
func (r *Reel) SetTimestamps(c, u time.Time) {
	r.createdAt = c
	r.updatedAt = u
}

// Touch updates the modification timestamp.
func (r *Reel) Touch() { r.updatedAt = time.Now().UTC() }

// Validate checks that the reel has a title and a contiguous item ordering.
func (r *Reel) Validate() error {
	if r.title == "" {
		return fmt.Errorf("reel title is required")
	}
	for i, item := range r.items {
		if item.Position != i {
			return fmt.Errorf("reel item %q has position %d, want %d", item.Path, item.Position, i)
		}
		if item.Path == "" {
			return fmt.Errorf("reel item at position %d has no path", i)
		}
	}
	return nil
}

// ReelItem is one positioned video inside a saved reel.
type ReelItem struct {
	ID           string
	Position     int
	Path         string
	Name         string
	Size         int64
	Duration     time.Duration
	ThumbnailURL string
}

// ItemFromRecord snapshots a catalog record into a reel item at the given position.
func ItemFromRecord(rec *VideoRecord, position int) ReelItem {
	return ReelItem{
		Position:     position,
		Path:         rec.Path,
		Name:         rec.Name,
		Size:         rec.Size,
		Duration:     rec.Duration,
		ThumbnailURL: rec.ThumbnailURL,
	}
}

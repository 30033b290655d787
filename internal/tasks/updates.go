package tasks

import (
	"fmt"

	"github.com/mcampolo/reeldeck/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Path    string // Record identity the event concerns, when per-record
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchListing Phase = iota
	ResolveStreams
	ProbeBatch
	ExtractDurations
	ReconcileDone
)

func (p Phase) String() string {
	switch p {
	case FetchListing:
		return "fetch_listing"
	case ResolveStreams:
		return "resolve_streams"
	case ProbeBatch:
		return "probe_batch"
	case ExtractDurations:
		return "extract_durations"
	case ReconcileDone:
		return "reconcile_done"
	default:
		return ""
	}
}

func fetchListingUpdate(folder string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchListing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Listing %s...", folder),
	}
}

func listingLoadedUpdate(folder string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchListing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d videos in %s", count, folder),
	}
}

func resolveStreamUpdate(step, total int, rec *models.VideoRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveStreams,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving stream link: %s", step, total, rec.Name),
		Path:    rec.Path,
	}
}

func probeResolvedUpdate(step, total int, path, name string, compatible bool) ProgressUpdate {
	verdict := "playable"
	if !compatible {
		verdict = "not playable"
	}
	return ProgressUpdate{
		Phase:   ProbeBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s", step, total, name, verdict),
		Path:    path,
	}
}

func durationResolvedUpdate(step, total int, path string, clock string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExtractDurations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Duration %s: %s", step, total, path, clock),
		Path:    path,
	}
}

func reconcileDoneUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reconciled %d records", count),
	}
}

package library

import (
	"fmt"
	"sync"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// Collection names one of the two panels.
type Collection int

const (
	// Source is the "your videos" panel: everything loaded but not selected.
	Source Collection = iota
	// Target is the "selects" panel: the ordered picks that become the reel.
	Target
)

func (c Collection) String() string {
	if c == Target {
		return "selects"
	}
	return "yourVideos"
}

// PanelState is the two ordered sequences of record identities. Every loaded
// identity lives in exactly one panel; order in Target is the final playback
// order, order in Source is cosmetic.
type PanelState struct {
	mu     sync.Mutex
	source []string
	target []string
}

// NewPanelState creates an empty panel arrangement.
func NewPanelState() *PanelState {
	return &PanelState{}
}

// Derive recomputes membership from the loaded catalog paths: any identity
// already in Target stays there (in its current order), every other loaded
// identity lands in Source in catalog order. Identities no longer in the
// catalog drop out of both panels. Idempotent.
func (p *PanelState) Derive(catalogPaths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	loaded := make(map[string]bool, len(catalogPaths))
	for _, path := range catalogPaths {
		loaded[path] = true
	}

	target := make([]string, 0, len(p.target))
	inTarget := make(map[string]bool, len(p.target))
	for _, path := range p.target {
		if loaded[path] && !inTarget[path] {
			target = append(target, path)
			inTarget[path] = true
		}
	}

	source := make([]string, 0, len(catalogPaths)-len(target))
	for _, path := range catalogPaths {
		if !inTarget[path] {
			source = append(source, path)
		}
	}

	p.source = source
	p.target = target
}

// Source returns a copy of the source panel order.
func (p *PanelState) Source() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.source...)
}

// Target returns a copy of the target panel order.
func (p *PanelState) Target() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.target...)
}

// Holds reports which panel contains path and at what index.
func (p *PanelState) Holds(path string) (Collection, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locate(path)
}

func (p *PanelState) locate(path string) (Collection, int, bool) {
	for i, candidate := range p.source {
		if candidate == path {
			return Source, i, true
		}
	}
	for i, candidate := range p.target {
		if candidate == path {
			return Target, i, true
		}
	}
	return Source, 0, false
}

// Move removes path from its current panel and inserts it into dest at index.
// A same-panel move is a pure permutation; a cross-panel move preserves total
// membership. The index is clamped to the destination bounds; a negative
// index means "append at the end". The whole operation is one
// read-modify-write under the lock, so concurrent movers cannot lose updates.
func (p *PanelState) Move(path string, dest Collection, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	from, at, ok := p.locate(path)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, path)
	}

	if from == Source {
		p.source = append(p.source[:at], p.source[at+1:]...)
	} else {
		p.target = append(p.target[:at], p.target[at+1:]...)
	}

	destSlice := &p.source
	if dest == Target {
		destSlice = &p.target
	}

	if index < 0 || index > len(*destSlice) {
		index = len(*destSlice)
	}

	updated := make([]string, 0, len(*destSlice)+1)
	updated = append(updated, (*destSlice)[:index]...)
	updated = append(updated, path)
	updated = append(updated, (*destSlice)[index:]...)
	*destSlice = updated

	return nil
}

// Delete removes path from the named panel only. The identity is gone for
// good; it is never resurrected into the other panel.
func (p *PanelState) Delete(path string, from Collection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	slice := &p.source
	if from == Target {
		slice = &p.target
	}
	for i, candidate := range *slice {
		if candidate == path {
			*slice = append((*slice)[:i], (*slice)[i+1:]...)
			return true
		}
	}
	return false
}

// Transfer is the gated move used by both drag-and-drop and keyboard paths:
// a record with a confirmed-incompatible verdict may be reordered within
// Source or deleted, but never moved into Target. The raised error names the
// record and its incompatibility reason for the error banner.
func Transfer(state *PanelState, catalog *Catalog, path string, dest Collection, index int) error {
	rec, ok := catalog.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, path)
	}

	if dest == Target && rec.Compatibility == models.CompatFailed {
		reason := rec.CompatibilityError
		if reason == "" {
			reason = "not playable"
		}
		return fmt.Errorf("%w: %q cannot be added to selects: %s", shared.ErrIncompatible, rec.Name, reason)
	}

	return state.Move(path, dest, index)
}

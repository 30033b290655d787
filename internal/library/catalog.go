// Package library holds the in-memory catalog of video records and the
// two-panel arrangement built on top of it.
//
// The catalog stores records by value and hands out copies; background
// reconciliation patches fields by path against the current contents, so a
// record the user deleted mid-flight is simply never resurrected by a stale
// patch. Panel membership is a separate, derived structure so recomputing it
// never loses user placement.
package library

import (
	"sync"
	"time"

	"github.com/mcampolo/reeldeck/internal/models"
)

// Catalog is the path-keyed set of loaded video records, in listing order.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	records map[string]models.VideoRecord
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{records: make(map[string]models.VideoRecord)}
}

// Replace swaps the entire contents for a fresh load.
func (c *Catalog) Replace(records []models.VideoRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = c.order[:0]
	c.records = make(map[string]models.VideoRecord, len(records))
	for _, rec := range records {
		if _, exists := c.records[rec.Path]; exists {
			continue
		}
		c.order = append(c.order, rec.Path)
		c.records[rec.Path] = rec
	}
}

// Append adds records, deduplicating by path against the already-loaded set.
// Returns the number actually added.
func (c *Catalog) Append(records []models.VideoRecord) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, rec := range records {
		if _, exists := c.records[rec.Path]; exists {
			continue
		}
		c.order = append(c.order, rec.Path)
		c.records[rec.Path] = rec
		added++
	}
	return added
}

// Clear empties the catalog (fresh-load failure semantics).
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.records = make(map[string]models.VideoRecord)
}

// Get returns a copy of the record at path.
func (c *Catalog) Get(path string) (models.VideoRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[path]
	return rec, ok
}

// Paths returns the loaded paths in listing order.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Snapshot returns copies of all records in listing order.
func (c *Catalog) Snapshot() []models.VideoRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.VideoRecord, 0, len(c.order))
	for _, path := range c.order {
		out = append(out, c.records[path])
	}
	return out
}

// Len returns the number of loaded records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Delete removes the record at path. Returns false if it was not present.
func (c *Catalog) Delete(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[path]; !ok {
		return false
	}
	delete(c.records, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// PatchStreamURL records a freshly resolved stream link. A no-op if the record
// has been deleted since the snapshot was taken.
func (c *Catalog) PatchStreamURL(path, url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[path]
	if !ok {
		return false
	}
	rec.StreamURL = url
	c.records[path] = rec
	return true
}

// PatchProbe applies a playability verdict by path. Field-level races between
// two probes are last-writer-wins, but a definite verdict never regresses to
// unknown and a deleted record is never resurrected.
func (c *Catalog) PatchProbe(path string, compatible bool, reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[path]
	if !ok {
		return false
	}

	if compatible {
		rec.Compatibility = models.CompatOK
		rec.CompatibilityError = ""
	} else {
		rec.Compatibility = models.CompatFailed
		rec.CompatibilityError = reason
	}
	rec.CheckedWithBrowser = true
	c.records[path] = rec
	return true
}

// PatchDuration applies an extracted duration by path. Zero (the unknown
// sentinel) never overwrites an existing value.
func (c *Catalog) PatchDuration(path string, d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[path]
	if !ok {
		return false
	}
	if d <= 0 {
		return false
	}
	rec.Duration = d
	c.records[path] = rec
	return true
}

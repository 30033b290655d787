// Package repositories implements SQLite persistence for saved reels.
//
// A reel row stores the arrangement header; its ordered items live in the
// reel_items junction table, keyed by (reel_id, position). Writes that touch
// both tables run inside a single transaction so a reel is never saved with a
// partial ordering. Soft deletes via deleted_at timestamps keep history around
// while excluding deleted reels from queries by default.
//
// Sequence numbers provide stable, human-readable ordering (reel #7)
// independent of UUIDs and creation timestamps. The [NextSequence] function
// atomically increments per-table sequence counters in dedicated sequence
// tables.
package repositories

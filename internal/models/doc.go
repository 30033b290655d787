// Package models defines domain entities and persistence interfaces for the reeldeck video curation tool.
//
// The package contains two categories of types:
//
// 1. Catalog types: in-memory records describing remote video files
//   - [FileDescriptor] : Raw listing entry returned by the storage provider
//   - [VideoRecord] : Annotated catalog entry with playability and duration state
//   - [Compatibility] : Tri-state browser-playability verdict
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Reel] : A saved arrangement of videos with ordered items
//   - [ReelItem] : One positioned video inside a reel
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models

// Package storage provides abstractions for durable process-local state.
package storage

import (
	"time"

	"github.com/nvats/spliteasy/internal/models"
)

// Cache is the durable local copy of all group data and the current user
// identity. It is the single source of truth for rendering.
//
// Cache operations never fail from the caller's perspective: a storage-layer
// error is logged and swallowed, leaving prior state intact, and corrupted
// data reads as empty rather than raising.
type Cache interface {
	// Load returns all locally cached groups, or an empty slice when the
	// store is empty or corrupted.
	Load() []models.Group

	// Save persists the full group collection, recomputing every group's
	// derived fields first.
	Save(groups []models.Group)

	// CurrentUser returns the persisted identity, or nil when signed out.
	CurrentUser() *models.User

	// SetCurrentUser persists the identity across sessions.
	SetCurrentUser(u *models.User)

	// LastSyncTime returns when the last full push completed (zero if never).
	LastSyncTime() time.Time

	// SetLastSyncTime records a completed full push.
	SetLastSyncTime(t time.Time)

	// Close releases any resources held by the cache.
	Close() error
}

// DeleteQueue is the durable list of deletions attempted while offline,
// replayed once connectivity returns.
type DeleteQueue interface {
	// Enqueue records a pending delete. A duplicate (same type and id) is a
	// no-op.
	Enqueue(entityType models.EntityType, id string)

	// Dequeue removes a pending delete after the remote delete succeeded.
	// Removing an entry that was never queued is a no-op.
	Dequeue(entityType models.EntityType, id string)

	// Drain returns all pending deletes, oldest first, without removing
	// them; entries leave the queue only via Dequeue.
	Drain() []models.PendingDelete
}

package models

import "time"

// EntityType identifies which kind of record a pending delete refers to.
type EntityType string

const (
	EntityGroup   EntityType = "group"
	EntityExpense EntityType = "expense"
)

// PendingDelete records a deletion attempted while offline. It is created
// when a delete cannot reach the remote store and removed once the
// corresponding remote delete succeeds, whether executed immediately or
// replayed later.
type PendingDelete struct {
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

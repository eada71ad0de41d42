// Package realtime applies asynchronous remote change notifications to the
// local view.
//
// A Stream delivers row-level change events for the watched tables; Listener
// consumes them through a bounded queue so a burst of remote edits cannot
// pile up unbounded concurrent pulls.
package realtime

import "context"

// EventType is the row-level change kind, matching the notification wire
// values.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one row change on a watched table. New carries the row image
// after the change (empty for deletes on some configurations), Old the image
// before it (often only the primary key). Column names are physical.
type Event struct {
	Table string
	Type  EventType
	New   map[string]any
	Old   map[string]any
}

// ActionLabel renders the event type for user-facing messages.
func (t EventType) ActionLabel() string {
	switch t {
	case EventInsert:
		return "added"
	case EventDelete:
		return "deleted"
	default:
		return "updated"
	}
}

// Stream is a source of change notifications. One Subscribe call multiplexes
// all requested tables onto a single subscription; the returned stop
// function tears it down and closes the event channel.
type Stream interface {
	Subscribe(ctx context.Context, tables []string) (events <-chan Event, stop func(), err error)
}

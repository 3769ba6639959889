// Package store defines the client contract for the remote order store: a
// hierarchical key-value service with point reads, full-collection snapshot
// reads, ordered queries, writes, deletes, and child/value event
// subscriptions. The backend itself is an external collaborator; this package
// carries the interface plus an in-memory implementation used by tests and
// local development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("store: path not found")

// Join builds a store path from its segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Record is one child of a collection: its push key and raw value.
type Record struct {
	Key   string
	Value json.RawMessage
}

func (r Record) Decode(dst any) error {
	return json.Unmarshal(r.Value, dst)
}

type EventType int

const (
	EventAdded EventType = iota
	EventChanged
	EventRemoved
	EventMoved
	EventCanceled
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	case EventMoved:
		return "moved"
	case EventCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Event is one child notification from a Watch subscription. Value is set for
// added/changed events, Err only for the terminal canceled event.
type Event struct {
	Type  EventType
	Key   string
	Value json.RawMessage
	Err   error
}

func (e Event) Decode(dst any) error {
	return json.Unmarshal(e.Value, dst)
}

// SnapshotEvent is one full-collection delivery from a WatchSnapshot
// subscription. Err is set only on the terminal cancellation.
type SnapshotEvent struct {
	Records []Record
	Err     error
}

// Subscription delivers child events in store order. After a canceled event
// the channel is closed. Stop is idempotent; after it returns no further
// events are delivered.
type Subscription interface {
	Events() <-chan Event
	Stop()
}

// SnapshotSubscription delivers a fresh full snapshot on every change under
// the watched path.
type SnapshotSubscription interface {
	Snapshots() <-chan SnapshotEvent
	Stop()
}

// Store is the remote order store client. All calls are context-bound; a
// canceled context aborts the call, never the store.
type Store interface {
	// Get reads the value at path into dst. Returns ErrNotFound when the
	// path holds no value.
	Get(ctx context.Context, path string, dst any) error

	// Set writes v at path, replacing any existing value. Writing to a
	// field path inside an existing record updates just that field.
	Set(ctx context.Context, path string, v any) error

	// Delete removes the subtree at path. Deleting an absent path is a
	// no-op.
	Delete(ctx context.Context, path string) error

	// Push stores v under a new store-generated push key beneath path and
	// returns the key. Push keys sort in creation order.
	Push(ctx context.Context, path string, v any) (string, error)

	// Snapshot reads every child of path, ordered ascending by the child
	// field named orderBy, or by key when orderBy is empty.
	Snapshot(ctx context.Context, path, orderBy string) ([]Record, error)

	// Watch subscribes to child events beneath path. Existing children are
	// replayed as added events before live events are delivered.
	Watch(ctx context.Context, path string) (Subscription, error)

	// WatchSnapshot subscribes to full-snapshot deliveries for path,
	// ordered like Snapshot. The current snapshot is delivered first.
	WatchSnapshot(ctx context.Context, path, orderBy string) (SnapshotSubscription, error)
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscriber channel capacity. Deliveries happen under the store mutex, so a
// full buffer drops the event rather than blocking the writer.
const eventBuffer = 1024

// MemStore is an in-memory Store used by tests and local development. It
// honors the remote store's event semantics: per-path subscriber fan-out,
// replay of existing children as added events on a new watch, and a terminal
// canceled event when a subscription is torn down by the store side.
type MemStore struct {
	mu           sync.Mutex
	root         map[string]any
	seq          uint64
	watchers     map[string][]*childWatcher
	snapWatchers map[string][]*snapshotWatcher
}

func NewMemStore() *MemStore {
	return &MemStore{
		root:         make(map[string]any),
		watchers:     make(map[string][]*childWatcher),
		snapWatchers: make(map[string][]*snapshotWatcher),
	}
}

// Seed replaces the entire tree with the given JSON document.
func (s *MemStore) Seed(data []byte) error {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	return nil
}

// SeedFromFile loads a JSON seed document from disk.
func (s *MemStore) SeedFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	return s.Seed(data)
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lookup walks the tree. Returns the value at the path, or false when absent.
func (s *MemStore) lookup(parts []string) (any, bool) {
	var cur any = s.root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ensureParent walks to the map holding the last path segment, creating
// intermediate maps as needed.
func (s *MemStore) ensureParent(parts []string) (map[string]any, string) {
	cur := s.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	return cur, parts[len(parts)-1]
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, path string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	v, ok := s.lookup(splitPath(path))
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (s *MemStore) Set(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val, err := normalize(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("set: empty path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	targets := s.childTargets(parts)
	parent, last := s.ensureParent(parts)
	parent[last] = val

	for _, t := range targets {
		childVal, ok := s.lookup(append(t.watchParts, t.key))
		if !ok {
			continue
		}
		data, err := json.Marshal(childVal)
		if err != nil {
			continue
		}
		typ := EventAdded
		if t.existed {
			typ = EventChanged
		}
		t.watcher.deliver(Event{Type: typ, Key: t.key, Value: data})
	}
	s.notifySnapshots(parts)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("delete: empty path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(parts); !ok {
		return nil
	}

	targets := s.childTargets(parts)
	parent, last := s.ensureParent(parts)
	delete(parent, last)

	for _, t := range targets {
		childVal, ok := s.lookup(append(t.watchParts, t.key))
		if !ok {
			t.watcher.deliver(Event{Type: EventRemoved, Key: t.key})
			continue
		}
		// A field was deleted inside a child that still exists.
		data, err := json.Marshal(childVal)
		if err != nil {
			continue
		}
		t.watcher.deliver(Event{Type: EventChanged, Key: t.key, Value: data})
	}
	s.notifySnapshots(parts)
	return nil
}

func (s *MemStore) Push(ctx context.Context, path string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.seq++
	// Timestamp-prefixed so push keys sort in creation order.
	key := fmt.Sprintf("%016x%04x-%s", time.Now().UnixNano(), s.seq, uuid.NewString()[:8])
	s.mu.Unlock()

	if err := s.Set(ctx, Join(path, key), v); err != nil {
		return "", err
	}
	return key, nil
}

func (s *MemStore) Snapshot(ctx context.Context, path, orderBy string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(path, orderBy)
}

func (s *MemStore) snapshotLocked(path, orderBy string) ([]Record, error) {
	v, ok := s.lookup(splitPath(path))
	if !ok {
		return nil, nil
	}
	children, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("snapshot %s: not a collection", path)
	}

	records := make([]Record, 0, len(children))
	for key, child := range children {
		data, err := json.Marshal(child)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{Key: key, Value: data})
	}

	orderValue := func(r Record) (num float64, str string, isNum bool) {
		if orderBy == "" {
			return 0, r.Key, false
		}
		var fields map[string]any
		if err := json.Unmarshal(r.Value, &fields); err != nil {
			return 0, r.Key, false
		}
		switch fv := fields[orderBy].(type) {
		case float64:
			return fv, "", true
		case string:
			return 0, fv, false
		default:
			return 0, r.Key, false
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		ni, si, numI := orderValue(records[i])
		nj, sj, numJ := orderValue(records[j])
		// Numeric order values sort before string ones, per store semantics.
		if numI != numJ {
			return numI
		}
		if numI {
			if ni != nj {
				return ni < nj
			}
		} else if si != sj {
			return si < sj
		}
		return records[i].Key < records[j].Key
	})
	return records, nil
}

func (s *MemStore) Watch(ctx context.Context, path string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := &childWatcher{
		store: s,
		path:  path,
		ch:    make(chan Event, eventBuffer),
	}
	s.watchers[path] = append(s.watchers[path], w)

	// Replay existing children as added events, in key order.
	records, err := s.snapshotLocked(path, "")
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		w.deliver(Event{Type: EventAdded, Key: r.Key, Value: r.Value})
	}
	return w, nil
}

func (s *MemStore) WatchSnapshot(ctx context.Context, path, orderBy string) (SnapshotSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := &snapshotWatcher{
		store:   s,
		path:    path,
		orderBy: orderBy,
		ch:      make(chan SnapshotEvent, eventBuffer),
	}
	s.snapWatchers[path] = append(s.snapWatchers[path], w)

	records, err := s.snapshotLocked(path, orderBy)
	if err != nil {
		return nil, err
	}
	w.deliver(SnapshotEvent{Records: records})
	return w, nil
}

// CancelWatches terminates every subscription under path with err, the way
// the remote store does on a permission or connectivity failure. Fault
// injection hook for tests and local development.
func (s *MemStore) CancelWatches(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.watchers[path] {
		w.deliver(Event{Type: EventCanceled, Err: err})
		w.closeLocked()
	}
	delete(s.watchers, path)

	for _, w := range s.snapWatchers[path] {
		w.deliver(SnapshotEvent{Err: err})
		w.closeLocked()
	}
	delete(s.snapWatchers, path)
}

// childTarget pairs a watcher with the collection child a mutation touches
// and whether that child existed before the mutation landed.
type childTarget struct {
	watcher    *childWatcher
	watchParts []string
	key        string
	existed    bool
}

// childTargets must run before the mutation at parts is applied.
func (s *MemStore) childTargets(parts []string) []childTarget {
	var targets []childTarget
	for watchPath, ws := range s.watchers {
		watchParts := splitPath(watchPath)
		if len(parts) <= len(watchParts) || !hasPrefix(parts, watchParts) {
			continue
		}
		key := parts[len(watchParts)]
		_, existed := s.lookup(append(watchParts[:len(watchParts):len(watchParts)], key))
		for _, w := range ws {
			targets = append(targets, childTarget{watcher: w, watchParts: watchParts, key: key, existed: existed})
		}
	}
	return targets
}

// notifySnapshots re-delivers full snapshots to every snapshot watcher whose
// path overlaps the mutated path.
func (s *MemStore) notifySnapshots(parts []string) {
	for watchPath, ws := range s.snapWatchers {
		watchParts := splitPath(watchPath)
		if !hasPrefix(parts, watchParts) && !hasPrefix(watchParts, parts) {
			continue
		}
		for _, w := range ws {
			records, err := s.snapshotLocked(watchPath, w.orderBy)
			if err != nil {
				continue
			}
			w.deliver(SnapshotEvent{Records: records})
		}
	}
}

func hasPrefix(parts, prefix []string) bool {
	if len(parts) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if parts[i] != p {
			return false
		}
	}
	return true
}

type childWatcher struct {
	store  *MemStore
	path   string
	ch     chan Event
	closed bool
}

func (w *childWatcher) Events() <-chan Event { return w.ch }

func (w *childWatcher) Stop() {
	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.watchers[w.path]
	for i, other := range ws {
		if other == w {
			s.watchers[w.path] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	w.closeLocked()
}

// deliver runs under the store mutex. A full buffer drops the event.
func (w *childWatcher) deliver(ev Event) {
	if w.closed {
		return
	}
	select {
	case w.ch <- ev:
	default:
	}
}

func (w *childWatcher) closeLocked() {
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

type snapshotWatcher struct {
	store   *MemStore
	path    string
	orderBy string
	ch      chan SnapshotEvent
	closed  bool
}

func (w *snapshotWatcher) Snapshots() <-chan SnapshotEvent { return w.ch }

func (w *snapshotWatcher) Stop() {
	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.snapWatchers[w.path]
	for i, other := range ws {
		if other == w {
			s.snapWatchers[w.path] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	w.closeLocked()
}

func (w *snapshotWatcher) deliver(ev SnapshotEvent) {
	if w.closed {
		return
	}
	select {
	case w.ch <- ev:
	default:
	}
}

func (w *snapshotWatcher) closeLocked() {
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

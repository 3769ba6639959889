// Package ingest maintains the canonical local view of pending orders by
// consuming the remote store's child-event stream for OrderDetails.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"wavefood-admin/internal/logger"
	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/order"
	"wavefood-admin/internal/store"
)

var ErrAlreadyStarted = errors.New("ingestion already started")

// Service owns the arrival-ordered list of pending orders and the notified
// key set. Both live from Start to Stop and are never shared across
// instances. Each distinct push key triggers at most one NewOrder signal,
// even when the store replays children after a reconnect.
type Service struct {
	store   store.Store
	gateway notify.Gateway
	onCount func(int)

	mu       sync.Mutex
	running  bool
	sub      store.Subscription
	done     chan struct{}
	orders   []order.Order
	notified map[string]struct{}
}

func NewService(st store.Store, gateway notify.Gateway) *Service {
	return &Service{store: st, gateway: gateway}
}

// OnCountChange registers a callback fired with the pending-order count after
// every addition or removal. Must be set before Start.
func (s *Service) OnCountChange(fn func(int)) {
	s.onCount = fn
}

// Start subscribes to OrderDetails and begins consuming child events on a
// single goroutine. Calling Start again without an intervening Stop is an
// error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}

	sub, err := s.store.Watch(ctx, order.PendingPath)
	if err != nil {
		return fmt.Errorf("subscribe to pending orders: %w", err)
	}

	s.sub = sub
	s.done = make(chan struct{})
	s.orders = nil
	s.notified = make(map[string]struct{})
	s.running = true

	go s.loop(sub)
	return nil
}

// Stop unsubscribes and waits for the event loop to exit. The local list and
// notified set die with the subscription. Safe to call when not running.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	sub := s.sub
	done := s.done
	s.mu.Unlock()

	sub.Stop()
	<-done

	s.mu.Lock()
	s.running = false
	s.orders = nil
	s.notified = nil
	s.mu.Unlock()
}

func (s *Service) loop(sub store.Subscription) {
	defer close(s.done)

	for ev := range sub.Events() {
		switch ev.Type {
		case store.EventAdded:
			s.handleAdded(ev)
		case store.EventRemoved:
			s.Remove(ev.Key)
		case store.EventChanged, store.EventMoved:
			// Field-level edits to a pending order are not reflected
			// locally.
		case store.EventCanceled:
			s.gateway.Error("Failed to load orders", ev.Err)
		}
	}
}

func (s *Service) handleAdded(ev store.Event) {
	var o order.Order
	if err := ev.Decode(&o); err != nil {
		logger.L().Warn("skipping undecodable order record",
			zap.String("push_key", ev.Key),
			zap.Error(err),
		)
		return
	}
	if o.PushKey == "" {
		o.PushKey = ev.Key
	}

	s.mu.Lock()
	if _, seen := s.notified[o.PushKey]; seen {
		s.mu.Unlock()
		return
	}
	s.notified[o.PushKey] = struct{}{}
	s.orders = append(s.orders, o)
	count := len(s.orders)
	s.mu.Unlock()

	s.gateway.NewOrder(o)
	s.countChanged(count)
}

// Remove drops the order with the given push key from the local list. It is
// the single removal path for both store-driven child-removed events and the
// dispatch completion, so running it twice for the same key is safe.
func (s *Service) Remove(key string) bool {
	s.mu.Lock()
	found := false
	for i, o := range s.orders {
		if o.PushKey == key {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			found = true
			break
		}
	}
	count := len(s.orders)
	s.mu.Unlock()

	if found {
		s.countChanged(count)
	}
	return found
}

// MarkAccepted flips the local slot's accepted flag. The flag is monotonic;
// there is no path back to pending.
func (s *Service) MarkAccepted(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].PushKey == key {
			s.orders[i].Accepted = true
			return
		}
	}
}

// Orders returns a copy of the pending list in arrival order.
func (s *Service) Orders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Order returns the local slot for the given push key.
func (s *Service) Order(key string) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PushKey == key {
			return o, true
		}
	}
	return order.Order{}, false
}

func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Notified reports whether a NewOrder signal has been emitted for the key
// during the current subscription.
func (s *Service) Notified(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.notified[key]
	return ok
}

func (s *Service) countChanged(count int) {
	if s.onCount != nil {
		s.onCount(count)
	}
}

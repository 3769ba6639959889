// Package dashboard keeps the admin home counters live: pending orders,
// completed orders, and a one-shot alert when new pending orders arrive.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/order"
	"wavefood-admin/internal/store"
)

var ErrAlreadyStarted = errors.New("dashboard already started")

// Service watches both collections with independent value subscriptions.
// The new-order alert fires once per pending-count high-water mark, so a
// count that shrinks and grows back to a seen level stays quiet.
type Service struct {
	store   store.Store
	gateway notify.Gateway

	mu             sync.Mutex
	running        bool
	pendingSub     store.SnapshotSubscription
	completedSub   store.SnapshotSubscription
	pendingDone    chan struct{}
	completedDone  chan struct{}
	pendingCount   int
	completedCount int
	lastShown      int
}

func NewService(st store.Store, gateway notify.Gateway) *Service {
	return &Service{store: st, gateway: gateway}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}

	pendingSub, err := s.store.WatchSnapshot(ctx, order.PendingPath, "")
	if err != nil {
		return fmt.Errorf("subscribe to pending orders: %w", err)
	}
	completedSub, err := s.store.WatchSnapshot(ctx, order.CompletedPath, "")
	if err != nil {
		pendingSub.Stop()
		return fmt.Errorf("subscribe to completed orders: %w", err)
	}

	s.pendingSub = pendingSub
	s.completedSub = completedSub
	s.pendingDone = make(chan struct{})
	s.completedDone = make(chan struct{})
	s.running = true

	go s.pendingLoop(pendingSub)
	go s.completedLoop(completedSub)
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	pendingSub, completedSub := s.pendingSub, s.completedSub
	pendingDone, completedDone := s.pendingDone, s.completedDone
	s.mu.Unlock()

	pendingSub.Stop()
	completedSub.Stop()
	<-pendingDone
	<-completedDone

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Service) pendingLoop(sub store.SnapshotSubscription) {
	defer close(s.pendingDone)

	for snap := range sub.Snapshots() {
		if snap.Err != nil {
			s.gateway.Error("Failed to retrieve pending orders count", snap.Err)
			continue
		}

		n := len(snap.Records)
		s.mu.Lock()
		s.pendingCount = n
		announce := n >= 1 && n > s.lastShown
		if announce {
			s.lastShown = n
		}
		s.mu.Unlock()

		if announce {
			s.gateway.Success("You have new pending orders!")
		}
	}
}

func (s *Service) completedLoop(sub store.SnapshotSubscription) {
	defer close(s.completedDone)

	for snap := range sub.Snapshots() {
		if snap.Err != nil {
			s.gateway.Error("Failed to retrieve completed orders count", snap.Err)
			continue
		}

		s.mu.Lock()
		s.completedCount = len(snap.Records)
		s.mu.Unlock()
	}
}

// Counts returns the live pending and completed totals.
func (s *Service) Counts() (pending, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCount, s.completedCount
}

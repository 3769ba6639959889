// Package earnings derives the whole-time earnings total from CompletedOrder.
package earnings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/order"
	"wavefood-admin/internal/store"
)

var ErrAlreadyStarted = errors.New("aggregator already started")

// Aggregator folds every CompletedOrder snapshot into a running total. The
// fold is pure and restartable: no state survives between snapshots besides
// the latest total. Records whose totalPrice fails to parse are skipped, not
// errored.
type Aggregator struct {
	store   store.Store
	gateway notify.Gateway

	mu      sync.Mutex
	running bool
	sub     store.SnapshotSubscription
	done    chan struct{}
	total   int
}

func NewAggregator(st store.Store, gateway notify.Gateway) *Aggregator {
	return &Aggregator{store: st, gateway: gateway}
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return ErrAlreadyStarted
	}

	sub, err := a.store.WatchSnapshot(ctx, order.CompletedPath, "")
	if err != nil {
		return fmt.Errorf("subscribe to completed orders: %w", err)
	}

	a.sub = sub
	a.done = make(chan struct{})
	a.running = true

	go a.loop(sub)
	return nil
}

func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	sub := a.sub
	done := a.done
	a.mu.Unlock()

	sub.Stop()
	<-done

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

func (a *Aggregator) loop(sub store.SnapshotSubscription) {
	defer close(a.done)

	for snap := range sub.Snapshots() {
		if snap.Err != nil {
			a.gateway.Error("Failed to retrieve earnings", snap.Err)
			continue
		}

		total := Sum(snap.Records)
		a.mu.Lock()
		a.total = total
		a.mu.Unlock()
	}
}

// Sum totals the parseable prices in one snapshot.
func Sum(records []store.Record) int {
	total := 0
	for _, r := range records {
		var o order.Order
		if err := r.Decode(&o); err != nil {
			continue
		}
		if n, ok := order.ParsePrice(o.TotalPrice); ok {
			total += n
		}
	}
	return total
}

// Total returns the latest whole-time earnings value.
func (a *Aggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// FormattedTotal renders the total the way the dashboard shows it.
func (a *Aggregator) FormattedTotal() string {
	return order.FormatPrice(a.Total())
}

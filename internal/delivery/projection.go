// Package delivery projects CompletedOrder into the out-for-delivery view:
// a reverse-chronological list of customer name and payment status.
package delivery

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

var ErrAlreadyStarted = errors.New("projection already started")

// Entry is one row of the delivery view.
type Entry struct {
	CustomerName    string `json:"customerName"`
	PaymentReceived bool   `json:"paymentReceived"`
}

// Projection is read-only and independent of ingestion: it subscribes to
// CompletedOrder ordered by currentTime and rebuilds the whole view on every
// snapshot delivery. Replacement is total, never incremental.
type Projection struct {
	store   store.Store
	gateway notify.Gateway

	mu        sync.Mutex
	running   bool
	sub       store.SnapshotSubscription
	done      chan struct{}
	entries   []Entry
	available bool
}

func NewProjection(st store.Store, gateway notify.Gateway) *Projection {
	return &Projection{store: st, gateway: gateway}
}

func (p *Projection) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyStarted
	}

	sub, err := p.store.WatchSnapshot(ctx, order.CompletedPath, order.TimeField)
	if err != nil {
		return fmt.Errorf("subscribe to completed orders: %w", err)
	}

	p.sub = sub
	p.done = make(chan struct{})
	p.running = true

	go p.loop(sub)
	return nil
}

// Stop releases the listener. Leaving it subscribed past the owning scope
// leaks a live listener against the remote store.
func (p *Projection) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	sub := p.sub
	done := p.done
	p.mu.Unlock()

	sub.Stop()
	<-done

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Projection) loop(sub store.SnapshotSubscription) {
	defer close(p.done)

	for snap := range sub.Snapshots() {
		if snap.Err != nil {
			p.mu.Lock()
			p.entries = nil
			p.available = false
			p.mu.Unlock()
			p.gateway.Error("Failed to retrieve completed orders", snap.Err)
			continue
		}
		p.rebuild(snap.Records)
	}
}

// rebuild replaces the view. Records arrive ascending by time; presentation
// order is newest first, so the sequence is reversed.
func (p *Projection) rebuild(records []store.Record) {
	entries := make([]Entry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		var o order.Order
		if err := records[i].Decode(&o); err != nil {
			logger.L().Warn("skipping undecodable completed order",
				zap.String("push_key", records[i].Key),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, Entry{
			CustomerName:    o.UserName,
			PaymentReceived: o.PaymentReceived,
		})
	}

	p.mu.Lock()
	p.entries = entries
	p.available = true
	p.mu.Unlock()
}

// Entries returns the current view, newest first, and whether the projection
// is available. After a subscription error it reports empty and unavailable.
func (p *Projection) Entries() ([]Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out, p.available
}

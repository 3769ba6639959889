// Package lifecycle drives an order through Pending, Accepted and Dispatched.
// Dispatch is a two-step cross-collection move with no transactional
// guarantee from the store; the partial-failure window between its two writes
// is documented behavior, detected by Reconcile and never auto-corrected.
package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wavefood-admin/internal/ingest"
	"wavefood-admin/internal/logger"
	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/order"
	"wavefood-admin/internal/store"
)

// PartialMoveError reports a dispatch whose completed-collection write landed
// but whose pending-collection delete failed. The order is now visible in
// both collections until a human or a reconciliation pass fixes it.
type PartialMoveError struct {
	Key   string
	Cause error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("order %s written to %s but not deleted from %s: %v",
		e.Key, order.CompletedPath, order.PendingPath, e.Cause)
}

func (e *PartialMoveError) Unwrap() error { return e.Cause }

// Machine executes the accept and dispatch transitions against the remote
// store. Local list bookkeeping is delegated to the ingestion service so both
// removal paths share one idempotent implementation.
type Machine struct {
	store   store.Store
	gateway notify.Gateway
	pending *ingest.Service
}

func NewMachine(st store.Store, gateway notify.Gateway, pending *ingest.Service) *Machine {
	return &Machine{store: st, gateway: gateway, pending: pending}
}

// Accept marks the order accepted in OrderDetails and mirrors the flag into
// the customer's purchase history. The double-acceptance guard is the local
// accepted flag only; two concurrent admin sessions can both accept and the
// last writer wins. Neither write is rolled back when the other fails.
func (m *Machine) Accept(ctx context.Context, key string) error {
	o, ok := m.pending.Order(key)
	if !ok {
		return fmt.Errorf("accept: no pending order with key %s", key)
	}
	if o.Accepted {
		return nil
	}

	log := logger.FromCtx(ctx).With(zap.String("push_key", key))

	orderPath := store.Join(order.PendingPath, key, order.AcceptedField)
	if err := m.store.Set(ctx, orderPath, true); err != nil {
		log.Error("failed to accept order", zap.Error(err))
		m.gateway.Error("Failed to accept order", err)
		return fmt.Errorf("accept order %s: %w", key, err)
	}

	historyPath := store.Join(order.UserPath, o.UserUID, order.HistoryPath, key, order.AcceptedField)
	if err := m.store.Set(ctx, historyPath, true); err != nil {
		// The OrderDetails write already landed and stays.
		log.Error("failed to mirror acceptance into buy history", zap.Error(err))
		m.gateway.Error("Failed to accept order", err)
		return fmt.Errorf("mirror acceptance for order %s: %w", key, err)
	}

	m.pending.MarkAccepted(key)
	m.gateway.Success("Order accepted")
	log.Info("order accepted")
	return nil
}

// Dispatch moves the order from OrderDetails to CompletedOrder: first a full
// copy with the accepted flag forced true, then the delete. A failed write
// leaves the order pending exactly as before. A failed delete after a
// successful write returns PartialMoveError and leaves the duplicate in
// place. Local removal is idempotent with the removal driven by the store's
// child-removed event; both paths may fire.
func (m *Machine) Dispatch(ctx context.Context, key string) error {
	o, ok := m.pending.Order(key)
	if !ok {
		return fmt.Errorf("dispatch: no pending order with key %s", key)
	}
	o.Accepted = true

	log := logger.FromCtx(ctx).With(zap.String("push_key", key))

	if err := m.store.Set(ctx, store.Join(order.CompletedPath, key), o); err != nil {
		log.Error("failed to dispatch order", zap.Error(err))
		m.gateway.Error("Failed to dispatch order", err)
		return fmt.Errorf("write completed order %s: %w", key, err)
	}

	if err := m.store.Delete(ctx, store.Join(order.PendingPath, key)); err != nil {
		moveErr := &PartialMoveError{Key: key, Cause: err}
		log.Error("order present in both collections after failed delete", zap.Error(err))
		m.gateway.Error("Failed to dispatch order", err)
		return moveErr
	}

	m.pending.Remove(key)
	m.gateway.Success("Order is dispatched")
	log.Info("order dispatched")
	return nil
}

// Reconcile scans both collections and returns the push keys visible in
// each, the detectable leftovers of a partial move. It only detects;
// repairing a duplicate stays a human decision.
func (m *Machine) Reconcile(ctx context.Context) ([]string, error) {
	pending, err := m.store.Snapshot(ctx, order.PendingPath, "")
	if err != nil {
		return nil, fmt.Errorf("snapshot pending orders: %w", err)
	}
	completed, err := m.store.Snapshot(ctx, order.CompletedPath, "")
	if err != nil {
		return nil, fmt.Errorf("snapshot completed orders: %w", err)
	}

	pendingKeys := make(map[string]struct{}, len(pending))
	for _, r := range pending {
		pendingKeys[r.Key] = struct{}{}
	}

	var duplicates []string
	for _, r := range completed {
		if _, ok := pendingKeys[r.Key]; ok {
			duplicates = append(duplicates, r.Key)
		}
	}
	return duplicates, nil
}

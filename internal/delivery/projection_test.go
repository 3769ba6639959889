package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/order"
	"wavefood-admin/internal/store"
)

const waitFor = time.Second

type recordingGateway struct {
	mu     sync.Mutex
	errors []string
}

var _ notify.Gateway = (*recordingGateway)(nil)

func (g *recordingGateway) NewOrder(order.Order) {}
func (g *recordingGateway) Success(string) {}

func (g *recordingGateway) Error(message string, cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errors = append(g.errors, message)
}

func (g *recordingGateway) Errors() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.errors...)
}

func completed(name string, paid bool, ts int64) order.Order {
	return order.Order{
		UserName:        name,
		PaymentReceived: paid,
		Accepted:        true,
		CurrentTime:     ts,
	}
}

func TestProjectionNewestFirst(t *testing.T) {
	ms := store.NewMemStore()
	ctx := context.Background()

	require.NoError(t, ms.Set(ctx, "CompletedOrder/a", completed("Alice", true, 100)))
	require.NoError(t, ms.Set(ctx, "CompletedOrder/b", completed("Bob", false, 300)))
	require.NoError(t, ms.Set(ctx, "CompletedOrder/c", completed("Cara", true, 200)))

	p := NewProjection(ms, &recordingGateway{})
	require.NoError(t, p.Start(ctx))
	defer p.Stop()

	require.Eventually(t, func() bool {
		entries, ok := p.Entries()
		return ok && len(entries) == 3
	}, waitFor, time.Millisecond)

	entries, _ := p.Entries()
	assert.Equal(t, []Entry{
		{CustomerName: "Bob", PaymentReceived: false},
		{CustomerName: "Cara", PaymentReceived: true},
		{CustomerName: "Alice", PaymentReceived: true},
	}, entries)
}

func TestProjectionRebuildIsTotal(t *testing.T) {
	ms := store.NewMemStore()
	ctx := context.Background()

	require.NoError(t, ms.Set(ctx, "CompletedOrder/a", completed("Alice", true, 100)))

	p := NewProjection(ms, &recordingGateway{})
	require.NoError(t, p.Start(ctx))
	defer p.Stop()

	require.Eventually(t, func() bool {
		entries, _ := p.Entries()
		return len(entries) == 1
	}, waitFor, time.Millisecond)

	// A removal upstream leaves no stale entry behind.
	require.NoError(t, ms.Delete(ctx, "CompletedOrder/a"))
	require.NoError(t, ms.Set(ctx, "CompletedOrder/b", completed("Bob", false, 200)))

	require.Eventually(t, func() bool {
		entries, _ := p.Entries()
		return len(entries) == 1 && entries[0].CustomerName == "Bob"
	}, waitFor, time.Millisecond)
}

func TestProjectionStartTwice(t *testing.T) {
	p := NewProjection(store.NewMemStore(), &recordingGateway{})
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestProjectionErrorMarksUnavailable(t *testing.T) {
	ms := store.NewMemStore()
	ctx := context.Background()

	require.NoError(t, ms.Set(ctx, "CompletedOrder/a", completed("Alice", true, 100)))

	gw := &recordingGateway{}
	p := NewProjection(ms, gw)
	require.NoError(t, p.Start(ctx))
	defer p.Stop()

	require.Eventually(t, func() bool {
		_, ok := p.Entries()
		return ok
	}, waitFor, time.Millisecond)

	ms.CancelWatches("CompletedOrder", errors.New("permission denied"))

	require.Eventually(t, func() bool {
		entries, ok := p.Entries()
		return !ok && len(entries) == 0
	}, waitFor, time.Millisecond)

	assert.Equal(t, []string{"Failed to retrieve completed orders"}, gw.Errors())
}

func TestProjectionStopReleasesListener(t *testing.T) {
	ms := store.NewMemStore()
	p := NewProjection(ms, &recordingGateway{})
	require.NoError(t, p.Start(context.Background()))

	p.Stop()
	p.Stop()

	// Restart after stop is a fresh subscription.
	require.NoError(t, p.Start(context.Background()))
	p.Stop()
}

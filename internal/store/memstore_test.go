package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOrder struct {
	UserName   string `json:"userName"`
	TotalPrice string `json:"totalPrice"`
	Accepted   bool   `json:"orderAccepted"`
	Time       int64  `json:"currentTime"`
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func recvSnapshot(t *testing.T, ch <-chan SnapshotEvent) SnapshotEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return SnapshotEvent{}
	}
}

func TestSetGetDelete(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	in := testOrder{UserName: "Alice", TotalPrice: "12$"}
	require.NoError(t, s.Set(ctx, "OrderDetails/key1", in))

	var out testOrder
	require.NoError(t, s.Get(ctx, "OrderDetails/key1", &out))
	assert.Equal(t, in, out)

	// Field-level read.
	var name string
	require.NoError(t, s.Get(ctx, "OrderDetails/key1/userName", &name))
	assert.Equal(t, "Alice", name)

	require.NoError(t, s.Delete(ctx, "OrderDetails/key1"))
	err := s.Get(ctx, "OrderDetails/key1", &out)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent path is a no-op.
	assert.NoError(t, s.Delete(ctx, "OrderDetails/key1"))
}

func TestFieldWriteUpdatesRecord(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "OrderDetails/key1", testOrder{UserName: "Alice"}))
	require.NoError(t, s.Set(ctx, "OrderDetails/key1/orderAccepted", true))

	var out testOrder
	require.NoError(t, s.Get(ctx, "OrderDetails/key1", &out))
	assert.True(t, out.Accepted)
	assert.Equal(t, "Alice", out.UserName)
}

func TestPushKeysSortInCreationOrder(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	k1, err := s.Push(ctx, "OrderDetails", testOrder{UserName: "first"})
	require.NoError(t, err)
	k2, err := s.Push(ctx, "OrderDetails", testOrder{UserName: "second"})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.Less(t, k1, k2)
}

func TestSnapshotOrdering(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "CompletedOrder/b", testOrder{UserName: "late", Time: 300}))
	require.NoError(t, s.Set(ctx, "CompletedOrder/a", testOrder{UserName: "early", Time: 100}))
	require.NoError(t, s.Set(ctx, "CompletedOrder/c", testOrder{UserName: "middle", Time: 200}))

	records, err := s.Snapshot(ctx, "CompletedOrder", "currentTime")
	require.NoError(t, err)
	require.Len(t, records, 3)

	var names []string
	for _, r := range records {
		var o testOrder
		require.NoError(t, r.Decode(&o))
		names = append(names, o.UserName)
	}
	assert.Equal(t, []string{"early", "middle", "late"}, names)
}

func TestSnapshotEmptyCollection(t *testing.T) {
	s := NewMemStore()

	records, err := s.Snapshot(context.Background(), "CompletedOrder", "currentTime")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWatchReplaysExistingChildren(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "OrderDetails/a", testOrder{UserName: "Alice"}))
	require.NoError(t, s.Set(ctx, "OrderDetails/b", testOrder{UserName: "Bob"}))

	sub, err := s.Watch(ctx, "OrderDetails")
	require.NoError(t, err)
	defer sub.Stop()

	ev := recvEvent(t, sub.Events())
	assert.Equal(t, EventAdded, ev.Type)
	assert.Equal(t, "a", ev.Key)

	ev = recvEvent(t, sub.Events())
	assert.Equal(t, EventAdded, ev.Type)
	assert.Equal(t, "b", ev.Key)
}

func TestWatchLiveEvents(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	sub, err := s.Watch(ctx, "OrderDetails")
	require.NoError(t, err)
	defer sub.Stop()

	require.NoError(t, s.Set(ctx, "OrderDetails/k", testOrder{UserName: "Alice"}))
	ev := recvEvent(t, sub.Events())
	assert.Equal(t, EventAdded, ev.Type)
	assert.Equal(t, "k", ev.Key)

	// A field write inside an existing child surfaces as changed.
	require.NoError(t, s.Set(ctx, "OrderDetails/k/orderAccepted", true))
	ev = recvEvent(t, sub.Events())
	assert.Equal(t, EventChanged, ev.Type)
	assert.Equal(t, "k", ev.Key)
	var o testOrder
	require.NoError(t, json.Unmarshal(ev.Value, &o))
	assert.True(t, o.Accepted)

	require.NoError(t, s.Delete(ctx, "OrderDetails/k"))
	ev = recvEvent(t, sub.Events())
	assert.Equal(t, EventRemoved, ev.Type)
	assert.Equal(t, "k", ev.Key)
}

func TestWatchStopIsIdempotent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	sub, err := s.Watch(ctx, "OrderDetails")
	require.NoError(t, err)

	sub.Stop()
	sub.Stop()

	// No events after stop: the channel is closed.
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestCancelWatches(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	sub, err := s.Watch(ctx, "OrderDetails")
	require.NoError(t, err)

	cause := errors.New("permission denied")
	s.CancelWatches("OrderDetails", cause)

	ev := recvEvent(t, sub.Events())
	assert.Equal(t, EventCanceled, ev.Type)
	assert.ErrorIs(t, ev.Err, cause)

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestWatchSnapshot(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "CompletedOrder/a", testOrder{UserName: "Alice", Time: 100}))

	sub, err := s.WatchSnapshot(ctx, "CompletedOrder", "currentTime")
	require.NoError(t, err)
	defer sub.Stop()

	snap := recvSnapshot(t, sub.Snapshots())
	require.NoError(t, snap.Err)
	require.Len(t, snap.Records, 1)

	require.NoError(t, s.Set(ctx, "CompletedOrder/b", testOrder{UserName: "Bob", Time: 200}))
	snap = recvSnapshot(t, sub.Snapshots())
	require.Len(t, snap.Records, 2)

	require.NoError(t, s.Delete(ctx, "CompletedOrder/a"))
	snap = recvSnapshot(t, sub.Snapshots())
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "b", snap.Records[0].Key)
}

func TestSeed(t *testing.T) {
	s := NewMemStore()

	seed := []byte(`{"menu": {"m1": {"foodName": "Pizza", "foodQuantity": "5"}}}`)
	require.NoError(t, s.Seed(seed))

	var name string
	require.NoError(t, s.Get(context.Background(), "menu/m1/foodName", &name))
	assert.Equal(t, "Pizza", name)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "OrderDetails/k/orderAccepted", Join("OrderDetails", "k", "orderAccepted"))
}

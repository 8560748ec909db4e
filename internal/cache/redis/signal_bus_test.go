package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func newTestBus(t *testing.T) *SignalBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewSignalBus(client)
}

func TestPublishEventRoundTrip(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.Subscribe(ctx, "spreadbot.events")
	require.NoError(t, err)

	ev := domain.BusEvent{
		Event:         domain.EventSettled,
		TransactionID: "tx-1",
		Venue:         domain.VenueZB,
		Profit:        2.5,
		Timestamp:     time.Now().UTC(),
	}
	require.NoError(t, bus.PublishEvent(ctx, "spreadbot.events", "spreadbot:events", ev))

	select {
	case payload := <-sub:
		var got domain.BusEvent
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, domain.EventSettled, got.Event)
		assert.Equal(t, "tx-1", got.TransactionID)
		assert.InDelta(t, 2.5, got.Profit, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber received nothing")
	}

	msgs, err := bus.StreamRead(ctx, "spreadbot:events", "0", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].ID)

	var replayed domain.BusEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &replayed))
	assert.Equal(t, "tx-1", replayed.TransactionID)
}

func TestStreamReadAfterLastID(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	for _, id := range []string{"tx-1", "tx-2"} {
		ev := domain.BusEvent{Event: domain.EventLegFilled, TransactionID: id, Timestamp: time.Now().UTC()}
		require.NoError(t, bus.PublishEvent(ctx, "spreadbot.events", "spreadbot:events", ev))
	}

	first, err := bus.StreamRead(ctx, "spreadbot:events", "0", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	rest, err := bus.StreamRead(ctx, "spreadbot:events", first[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	var got domain.BusEvent
	require.NoError(t, json.Unmarshal(rest[0].Payload, &got))
	assert.Equal(t, "tx-2", got.TransactionID)
}

func TestStreamReadEmptyStream(t *testing.T) {
	bus := newTestBus(t)

	msgs, err := bus.StreamRead(context.Background(), "spreadbot:missing", "0", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

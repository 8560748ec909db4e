package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

type fakeSender struct {
	name string
	err  error

	mu   sync.Mutex
	sent []Message
}

func (f *fakeSender) Send(ctx context.Context, m Message) error {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) received() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFansOutToAllSenders(t *testing.T) {
	a := &fakeSender{name: "a"}
	b := &fakeSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, discardLogger())

	m := Message{
		Event:         domain.EventSettled,
		Title:         "Transaction settled",
		Body:          "profit 2.99",
		Venue:         domain.VenueHPX,
		TransactionID: "tx-1",
	}
	require.NoError(t, n.Notify(context.Background(), m))

	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)
	assert.Equal(t, m, a.received()[0])
	assert.Equal(t, "tx-1", b.received()[0].TransactionID)
	assert.Equal(t, domain.VenueHPX, b.received()[0].Venue)
}

func TestNotifyFiltersByEvent(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{domain.EventSettled}, discardLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, Message{Event: domain.EventLowBalance, Title: "Low balance"}))
	assert.Empty(t, s.received())

	require.NoError(t, n.Notify(ctx, Message{Event: domain.EventSettled, Title: "Settled"}))
	assert.Len(t, s.received(), 1)
}

func TestNotifyContinuesPastFailingSender(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("webhook down")}
	working := &fakeSender{name: "working"}
	n := NewNotifier([]Sender{broken, working}, nil, discardLogger())

	err := n.Notify(context.Background(), Message{Event: domain.EventSettled, Title: "Settled"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, working.received(), 1)
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	require.NoError(t, n.Notify(context.Background(), Message{Event: domain.EventSettled}))
}

func TestMessageText(t *testing.T) {
	m := Message{
		Body:          "hedge sell 0.50000000 rejected",
		Venue:         domain.VenueZB,
		TransactionID: "tx-9",
	}
	assert.Equal(t, "hedge sell 0.50000000 rejected\nvenue: zb\ntransaction: tx-9", m.text())

	bare := Message{Body: "plain"}
	assert.Equal(t, "plain", bare.text())
}

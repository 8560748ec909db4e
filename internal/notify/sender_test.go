package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func TestTelegramSendPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewTelegramSender("token123", "chat42")
	s.apiBase = srv.URL

	m := Message{
		Event:         domain.EventSettled,
		Title:         "Transaction settled",
		Body:          "profit 2.99",
		Venue:         domain.VenueZB,
		TransactionID: "tx-1",
	}
	require.NoError(t, s.Send(context.Background(), m))

	assert.Equal(t, "chat42", got["chat_id"])
	assert.Equal(t, "Markdown", got["parse_mode"])
	assert.Equal(t, "*Transaction settled*\nprofit 2.99\nvenue: zb\ntransaction: tx-1", got["text"])
}

func TestTelegramSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewTelegramSender("token123", "chat42")
	s.apiBase = srv.URL

	err := s.Send(context.Background(), Message{Title: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDiscordSendPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)

	m := Message{
		Event: domain.EventLowBalance,
		Title: "Low balance",
		Body:  "balance low: base 0.10000000",
		Venue: domain.VenueHPX,
	}
	require.NoError(t, s.Send(context.Background(), m))

	assert.Equal(t, "**Low balance**\nbalance low: base 0.10000000\nvenue: hpx", got["content"])
}

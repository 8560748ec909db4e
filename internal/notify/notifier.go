// Package notify routes coordinator lifecycle alerts to operator channels
// (Telegram, Discord). Alerts are typed messages carrying the venue and
// transaction they concern; the notifier filters them by event name and fans
// out to every configured sender.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Message is one operator alert. Event is a domain event name and drives
// filtering; Venue and TransactionID are optional context rendered into the
// delivered text when set.
type Message struct {
	Event         string
	Title         string
	Body          string
	Venue         domain.Venue
	TransactionID string
}

// text renders the body plus context lines. Shared by all senders so every
// channel reports the same facts.
func (m Message) text() string {
	var b strings.Builder
	b.WriteString(m.Body)
	if m.Venue != "" {
		fmt.Fprintf(&b, "\nvenue: %s", m.Venue)
	}
	if m.TransactionID != "" {
		fmt.Fprintf(&b, "\ntransaction: %s", m.TransactionID)
	}
	return b.String()
}

// Sender is the interface each delivery channel implements.
type Sender interface {
	Send(ctx context.Context, m Message) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches alerts to one or more Senders. It maintains a set of
// allowed event names; Notify drops messages whose Event is not in the set.
// An empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// messages whose Event appears in the events slice will be forwarded; if
// events is empty, all events are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the message to all senders when its event passes the
// filter. Errors from individual senders are collected and returned as a
// combined error; a single sender failure does not prevent delivery to the
// remaining senders.
func (n *Notifier) Notify(ctx context.Context, m Message) error {
	if len(n.events) > 0 && !n.events[m.Event] {
		n.logger.DebugContext(ctx, "alert filtered out",
			slog.String("event", m.Event),
		)
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, m); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", m.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("sender", s.Name()),
			slog.String("event", m.Event),
			slog.String("transaction", m.TransactionID),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

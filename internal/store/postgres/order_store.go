package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. Every order the
// coordinator sends is recorded here for audit; fills are updated as refresh
// responses arrive.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order into the database.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, venue, side, order_type, price, size, filled_size,
			broker_order_id, status, created_at, sent_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, string(o.Venue), string(o.Side), string(o.Type),
		o.Price, o.Size, o.FilledSize,
		o.BrokerOrderID, string(o.Status),
		o.CreationTime, nullTime(o.SentTime),
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

// UpdateFill records an order's latest filled size and status.
func (s *OrderStore) UpdateFill(ctx context.Context, id string, filled float64, status domain.OrderStatus) error {
	const query = `
		UPDATE orders
		SET filled_size = $1, status = $2, updated_at = NOW()
		WHERE id = $3`

	tag, err := s.pool.Exec(ctx, query, filled, string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update order fill %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)

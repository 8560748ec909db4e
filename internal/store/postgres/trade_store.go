package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. A settlement row
// carries the taker leg inline; hedge legs live in settlement_legs, ordered
// by their re-pricing sequence.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// CreateSettlement inserts a settled transaction and its hedge legs in one
// transaction.
func (s *TradeStore) CreateSettlement(ctx context.Context, st domain.SettledTransaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSettlement = `
		INSERT INTO settlements (
			id, direction,
			taker_order_id, taker_broker_order_id, taker_venue, taker_side,
			taker_price, taker_filled, taker_created_at,
			hedge_vwap, profit, forced, opened_at, settled_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14
		)`
	_, err = tx.Exec(ctx, insertSettlement,
		st.ID, string(st.Direction),
		st.Taker.OrderID, st.Taker.BrokerOrderID, string(st.Taker.Venue), string(st.Taker.Side),
		st.Taker.Price, st.Taker.FilledSize, st.Taker.CreatedAt,
		st.HedgeVWAP, st.Profit, st.Forced, st.OpenedAt, st.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create settlement %s: %w", st.ID, err)
	}

	const insertLeg = `
		INSERT INTO settlement_legs (
			settlement_id, leg_index, order_id, broker_order_id,
			venue, side, price, filled_size, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, leg := range st.Hedges {
		if _, err := tx.Exec(ctx, insertLeg,
			st.ID, i, leg.OrderID, leg.BrokerOrderID,
			string(leg.Venue), string(leg.Side), leg.Price, leg.FilledSize, leg.CreatedAt,
		); err != nil {
			return fmt.Errorf("postgres: create settlement leg %s/%d: %w", st.ID, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit settlement %s: %w", st.ID, err)
	}
	return nil
}

// ListSettledBefore returns settlements settled strictly before cutoff,
// oldest first, up to limit, with their hedge legs attached.
func (s *TradeStore) ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.SettledTransaction, error) {
	const query = `
		SELECT id, direction,
			taker_order_id, taker_broker_order_id, taker_venue, taker_side,
			taker_price, taker_filled, taker_created_at,
			hedge_vwap, profit, forced, opened_at, settled_at
		FROM settlements
		WHERE settled_at < $1
		ORDER BY settled_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements: %w", err)
	}
	defer rows.Close()

	var sts []domain.SettledTransaction
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		sts = append(sts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate settlements: %w", err)
	}

	for i := range sts {
		legs, err := s.listLegs(ctx, sts[i].ID)
		if err != nil {
			return nil, err
		}
		sts[i].Hedges = legs
	}
	return sts, nil
}

// DeleteSettledBefore removes settlements settled strictly before cutoff.
// Legs are removed by the foreign key cascade.
func (s *TradeStore) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM settlements WHERE settled_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete settlements: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *TradeStore) listLegs(ctx context.Context, settlementID string) ([]domain.SettledLeg, error) {
	const query = `
		SELECT order_id, broker_order_id, venue, side, price, filled_size, created_at
		FROM settlement_legs
		WHERE settlement_id = $1
		ORDER BY leg_index ASC`

	rows, err := s.pool.Query(ctx, query, settlementID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlement legs %s: %w", settlementID, err)
	}
	defer rows.Close()

	var legs []domain.SettledLeg
	for rows.Next() {
		var leg domain.SettledLeg
		var venue, side string
		if err := rows.Scan(&leg.OrderID, &leg.BrokerOrderID, &venue, &side, &leg.Price, &leg.FilledSize, &leg.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan settlement leg: %w", err)
		}
		leg.Venue = domain.Venue(venue)
		leg.Side = domain.OrderSide(side)
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

func scanSettlement(row pgx.Row) (domain.SettledTransaction, error) {
	var st domain.SettledTransaction
	var direction, venue, side string
	err := row.Scan(
		&st.ID, &direction,
		&st.Taker.OrderID, &st.Taker.BrokerOrderID, &venue, &side,
		&st.Taker.Price, &st.Taker.FilledSize, &st.Taker.CreatedAt,
		&st.HedgeVWAP, &st.Profit, &st.Forced, &st.OpenedAt, &st.SettledAt,
	)
	if err != nil {
		return domain.SettledTransaction{}, err
	}
	st.Direction = domain.Direction(direction)
	st.Taker.Venue = domain.Venue(venue)
	st.Taker.Side = domain.OrderSide(side)
	return st, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)

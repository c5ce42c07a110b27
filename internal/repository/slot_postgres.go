package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/repairshop-cart/internal/port"
)

//go:embed migrations/01_cart_slots.up.sql
var cartSlotsSchema string

type postgresSlots struct {
	q    querier
	pool *pgxpool.Pool
}

func NewPostgresSlots(pool *pgxpool.Pool) port.BatchSlotStore {
	return &postgresSlots{
		q:    pool,
		pool: pool,
	}
}

func NewPostgresSlotsWithTx(tx pgx.Tx) port.BatchSlotStore {
	return &postgresSlots{
		q:    tx,
		pool: nil, // use provided transaction instead
	}
}

// Migrate creates the cart_slots table if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, cartSlotsSchema); err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}
	return nil
}

const (
	loadSlotSQL   = `SELECT value FROM cart_slots WHERE key = $1`
	deleteSlotSQL = `DELETE FROM cart_slots WHERE key = $1`
	upsertSlotSQL = `INSERT INTO cart_slots (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
)

func (r *postgresSlots) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	var value []byte
	err := r.q.QueryRow(ctx, loadSlotSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("q.QueryRow: %w", err)
	}

	return value, nil
}

func (r *postgresSlots) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if _, err := r.q.Exec(ctx, upsertSlotSQL, key, value); err != nil {
		return fmt.Errorf("q.Exec: %w", err)
	}

	return nil
}

func (r *postgresSlots) SaveAll(ctx context.Context, values map[string][]byte) error {
	for key := range values {
		if key == "" {
			return fmt.Errorf("key is empty")
		}
	}

	_, err := withTx(ctx, r.pool, r.q, func(q querier) (struct{}, error) {
		// lock rows in key order
		for _, key := range slices.Sorted(maps.Keys(values)) {
			if _, err := q.Exec(ctx, upsertSlotSQL, key, values[key]); err != nil {
				return struct{}{}, fmt.Errorf("q.Exec[%s]: %w", key, err)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("withTx: %w", err)
	}

	return nil
}

func (r *postgresSlots) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key is empty")
	}

	tag, err := r.q.Exec(ctx, deleteSlotSQL, key)
	if err != nil {
		return false, fmt.Errorf("q.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

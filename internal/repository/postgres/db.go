package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
	db   DB
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// NewStoreWithDB builds a Store over an arbitrary DB handle instead of a
// pool. RunTx then delegates straight to fn: the handle owns the transaction
// boundaries. Used by tests driving the repositories through a fake handle.
func NewStoreWithDB(db DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	if s.pool == nil {
		return fn(ctx, s.db)
	}

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Inventory() *InventoryRepo       { return &InventoryRepo{pool: s.pool, db: s.db} }
func (s *Store) Availability() *AvailabilityRepo { return &AvailabilityRepo{pool: s.pool, db: s.db} }
func (s *Store) Bookings() *BookingRepo          { return &BookingRepo{pool: s.pool, db: s.db} }
func (s *Store) Payments() *PaymentRepo          { return &PaymentRepo{pool: s.pool, db: s.db} }

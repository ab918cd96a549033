package uow

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/staymarket/staycore/internal/repository/postgres"
)

// ErrConcurrencyConflict is returned when a transaction keeps losing
// serialization conflicts after all retry attempts.
var ErrConcurrencyConflict = errors.New("transaction aborted after retries")

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

const (
	maxAttempts = 3
	baseBackoff = 25 * time.Millisecond
)

// DoRetry is Do plus bounded retries for serializable transactions: on a
// serialization failure or deadlock the whole function is re-run from
// scratch, with jittered backoff between attempts. fn must therefore be safe
// to execute multiple times. Any other error aborts immediately.
func (u *UoW) DoRetry(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = u.Do(ctx, fn)
		if err == nil || !postgres.IsRetryable(err) {
			return err
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}

	return errors.Join(ErrConcurrencyConflict, err)
}

func backoff(attempt int) time.Duration {
	d := baseBackoff << attempt
	return d + time.Duration(rand.Int63n(int64(d)))
}

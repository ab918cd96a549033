package postgres

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/repository"
)

// stubDB returns canned results so the rows-affected guards can be exercised
// without a live database.
type stubDB struct {
	execTag  pgconn.CommandTag
	execErr  error
	execSQL  []string
	execArgs [][]any
	rowVals  []any
	rowErr   error
}

func (s *stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = append(s.execArgs, args)
	return s.execTag, s.execErr
}

func (s *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected query")
}

func (s *stubDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return stubRow{vals: s.rowVals, err: s.rowErr}
}

func (s *stubDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return nil
}

type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		ev := reflect.ValueOf(d).Elem()
		sv := reflect.ValueOf(r.vals[i])
		if sv.Type().AssignableTo(ev.Type()) {
			ev.Set(sv)
		} else {
			ev.Set(sv.Convert(ev.Type()))
		}
	}
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReserveRange_AllNightsUpdated(t *testing.T) {
	db := &stubDB{execTag: pgconn.NewCommandTag("UPDATE 3")}
	repo := NewStoreWithDB(db).Availability()

	err := repo.ReserveRange(context.Background(), uuid.New(), day(2026, 9, 10), day(2026, 9, 13), 2)

	assert.NoError(t, err)
}

func TestReserveRange_PartialMatchIsUnavailable(t *testing.T) {
	// Three nights requested, only two rows met the capacity condition:
	// the statement must be treated as a failed reservation.
	db := &stubDB{execTag: pgconn.NewCommandTag("UPDATE 2")}
	repo := NewStoreWithDB(db).Availability()

	err := repo.ReserveRange(context.Background(), uuid.New(), day(2026, 9, 10), day(2026, 9, 13), 2)

	assert.ErrorIs(t, err, repository.ErrUnitsUnavailable)
}

func TestUpdateStatus_GuardMiss(t *testing.T) {
	t.Run("booking in another status", func(t *testing.T) {
		db := &stubDB{
			execTag: pgconn.NewCommandTag("UPDATE 0"),
			rowVals: []any{"confirmed"},
		}
		repo := NewStoreWithDB(db).Bookings()

		err := repo.UpdateStatus(context.Background(), uuid.New(),
			domain.StatusCancelled, []domain.BookingStatus{domain.StatusPendingPayment})

		assert.ErrorIs(t, err, repository.ErrIllegalTransition)
	})

	t.Run("booking missing", func(t *testing.T) {
		db := &stubDB{
			execTag: pgconn.NewCommandTag("UPDATE 0"),
			rowErr:  pgx.ErrNoRows,
		}
		repo := NewStoreWithDB(db).Bookings()

		err := repo.UpdateStatus(context.Background(), uuid.New(),
			domain.StatusConfirmed, []domain.BookingStatus{domain.StatusPendingPayment})

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUpdateStatus_GuardHit(t *testing.T) {
	db := &stubDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewStoreWithDB(db).Bookings()

	err := repo.UpdateStatus(context.Background(), uuid.New(),
		domain.StatusConfirmed, []domain.BookingStatus{domain.StatusPendingPayment})

	assert.NoError(t, err)
}

func TestInitializeRange_PassesOverrideAndMinStay(t *testing.T) {
	db := &stubDB{execTag: pgconn.NewCommandTag("INSERT 0 5")}
	repo := NewStoreWithDB(db).Availability()

	price := int64(12500)
	n, err := repo.InitializeRange(context.Background(), uuid.New(),
		day(2026, 9, 10), day(2026, 9, 15), 4, &price, 2)

	assert.NoError(t, err)
	assert.Equal(t, int64(5), n)

	args := db.execArgs[0]
	assert.Equal(t, &price, args[4])
	assert.Equal(t, 2, args[5])
}

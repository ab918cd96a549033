package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, unit_id, guest_name, guest_email, start_date, end_date,
	units, nights, total_price_cents, deposit_required_cents, status,
	payment_deadline, cancel_reason, cancel_actor,
	confirmed_at, checked_in_at, checked_out_at, cancelled_at, created_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.UnitID, &b.GuestName, &b.GuestEmail, &b.Start, &b.End,
		&b.Units, &b.Nights, &b.TotalPriceCents, &b.DepositRequiredCents, &b.Status,
		&b.PaymentDeadline, &b.CancelReason, &b.CancelActor,
		&b.ConfirmedAt, &b.CheckedInAt, &b.CheckedOutAt, &b.CancelledAt, &b.CreatedAt,
	)
	return b, err
}

// Insert writes the booking, one allocation row per night, and the opening
// invoice in a single batch. Must run inside the reservation transaction so
// the allocation rows and the availability decrement commit together.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Insert"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO bookings
		   (id, unit_id, guest_name, guest_email, start_date, end_date,
		    units, nights, total_price_cents, deposit_required_cents,
		    status, payment_deadline)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		b.ID, b.UnitID, b.GuestName, b.GuestEmail, b.Start, b.End,
		b.Units, b.Nights, b.TotalPriceCents, b.DepositRequiredCents,
		b.Status, b.PaymentDeadline,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	batch := &pgx.Batch{}
	for _, date := range domain.DatesIn(b.Start, b.End) {
		batch.Queue(
			`INSERT INTO booking_allocations (booking_id, unit_id, date, units)
			 VALUES ($1, $2, $3, $4)`,
			b.ID, b.UnitID, date, b.Units,
		)
	}
	batch.Queue(
		`INSERT INTO invoices (id, booking_id, total_amount_cents, total_paid_cents, status, due_date)
		 VALUES ($1, $2, $3, 0, $4, $5)`,
		uuid.New(), b.ID, b.TotalPriceCents, domain.InvoicePending, b.PaymentDeadline,
	)
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// UpdateStatus moves a booking to a new status, guarded by the set of legal
// source statuses so concurrent transitions cannot race past the state
// machine. The matching lifecycle timestamp is stamped in the same statement.
//
// Returns:
//   - error: repository.ErrNotFound if no booking has the given ID.
//   - error: repository.ErrIllegalTransition if the booking is in none of
//     the allowed source statuses.
func (r *BookingRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	to domain.BookingStatus,
	from []domain.BookingStatus,
) error {
	const op = "postgres.BookingRepo.UpdateStatus"

	db := r.handle()

	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		 SET status = $2,
		     confirmed_at  = CASE WHEN $2 = 'confirmed' THEN now() ELSE confirmed_at END,
		     checked_in_at = CASE WHEN $2 = 'checked_in' THEN now() ELSE checked_in_at END,
		     checked_out_at = CASE WHEN $2 = 'completed' THEN now() ELSE checked_out_at END,
		     cancelled_at  = CASE WHEN $2 IN ('cancelled', 'rejected') THEN now() ELSE cancelled_at END
		 WHERE id = $1 AND status = ANY($3)`,
		id, to, sources,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		var current string
		err := db.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return fmt.Errorf("%s: from %s to %s: %w", op, current, to, repository.ErrIllegalTransition)
	}

	return nil
}

func (r *BookingRepo) SetCancelInfo(ctx context.Context, id uuid.UUID, reason, actor string) error {
	const op = "postgres.BookingRepo.SetCancelInfo"

	_, err := r.handle().Exec(ctx,
		`UPDATE bookings SET cancel_reason = $2, cancel_actor = $3 WHERE id = $1`,
		id, reason, actor,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// ListExpiredPendingPayment returns bookings still awaiting payment whose
// deadline has passed, oldest first. Limit bounds one sweep batch.
func (r *BookingRepo) ListExpiredPendingPayment(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListExpiredPendingPayment"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE status = 'pending_payment' AND payment_deadline <= $1
		 ORDER BY payment_deadline
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *BookingRepo) ListByGuest(ctx context.Context, email string) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByGuest"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE guest_email = $1
		 ORDER BY created_at DESC`,
		email,
	)
}

func (r *BookingRepo) ListByUnit(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByUnit"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE unit_id = $1 AND start_date < $3 AND end_date > $2
		 ORDER BY start_date`,
		unitID, from, to,
	)
}

func (r *BookingRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// CountActiveByUnit counts bookings still holding capacity against the unit,
// used to guard deactivation and capacity shrinks.
func (r *BookingRepo) CountActiveByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	const op = "postgres.BookingRepo.CountActiveByUnit"

	var n int64
	err := r.handle().QueryRow(ctx,
		`SELECT count(*)
		 FROM bookings
		 WHERE unit_id = $1
		   AND status IN ('pending_payment', 'pending_approval', 'confirmed', 'checked_in')`,
		unitID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return n, nil
}

func (r *BookingRepo) Allocations(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingAllocation, error) {
	const op = "postgres.BookingRepo.Allocations"

	rows, err := r.handle().Query(ctx,
		`SELECT booking_id, unit_id, date, units, released, released_at
		 FROM booking_allocations
		 WHERE booking_id = $1
		 ORDER BY date`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.BookingAllocation
	for rows.Next() {
		var a domain.BookingAllocation
		if err := rows.Scan(&a.BookingID, &a.UnitID, &a.Date, &a.Units, &a.Released, &a.ReleasedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// InsertEvent appends one audit row to the booking's history.
func (r *BookingRepo) InsertEvent(ctx context.Context, bookingID uuid.UUID, action, actor, note string) error {
	const op = "postgres.BookingRepo.InsertEvent"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO booking_events (booking_id, action, actor, note)
		 VALUES ($1, $2, $3, $4)`,
		bookingID, action, actor, note,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) ListEvents(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingEvent, error) {
	const op = "postgres.BookingRepo.ListEvents"

	rows, err := r.handle().Query(ctx,
		`SELECT id, booking_id, action, actor, note, created_at
		 FROM booking_events
		 WHERE booking_id = $1
		 ORDER BY id`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.BookingEvent
	for rows.Next() {
		var e domain.BookingEvent
		if err := rows.Scan(&e.ID, &e.BookingID, &e.Action, &e.Actor, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// Occupancy aggregates a unit's committed night-units over [start, end) from
// unreleased allocations.
func (r *BookingRepo) Occupancy(ctx context.Context, unitID uuid.UUID, start, end time.Time) (domain.OccupancySummary, error) {
	const op = "postgres.BookingRepo.Occupancy"

	var s domain.OccupancySummary
	s.UnitID = unitID

	err := r.handle().QueryRow(ctx,
		`SELECT u.total_units,
		        COALESCE(sum(al.units), 0),
		        count(DISTINCT al.booking_id)
		 FROM inventory_units u
		 LEFT JOIN booking_allocations al
		   ON al.unit_id = u.id
		  AND NOT al.released
		  AND al.date >= $2 AND al.date < $3
		 WHERE u.id = $1
		 GROUP BY u.total_units`,
		unitID, start, end,
	).Scan(&s.TotalUnits, &s.BookedUnits, &s.ActiveBookings)
	if err != nil {
		return domain.OccupancySummary{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return s, nil
}

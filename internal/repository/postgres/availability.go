package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/repository"
)

type AvailabilityRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AvailabilityRepo) With(db DB) *AvailabilityRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AvailabilityRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// InitializeRange seeds one availability row per night of [start, end) with
// the unit's full capacity, optionally stamping a per-night price override
// and a min-stay floor onto the new rows. Existing rows are left untouched,
// so the call is idempotent and safe to repeat over overlapping windows.
//
// Returns the number of rows actually inserted.
func (r *AvailabilityRepo) InitializeRange(
	ctx context.Context,
	unitID uuid.UUID,
	start, end time.Time,
	totalUnits int,
	priceOverride *int64,
	minStay int,
) (int64, error) {
	const op = "postgres.AvailabilityRepo.InitializeRange"

	tag, err := r.handle().Exec(ctx,
		`INSERT INTO availability (unit_id, date, total_units, available_units, price_override_cents, min_stay)
		 SELECT $1, d::date, $4, $4, $5::bigint, $6
		 FROM generate_series($2::date, $3::date - interval '1 day', interval '1 day') AS d
		 ON CONFLICT (unit_id, date) DO NOTHING`,
		unitID, start, end, totalUnits, priceOverride, minStay,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// GetRange returns the availability rows for every night of [start, end),
// ordered by date. Fewer rows than nights means the horizon does not cover
// the range yet.
func (r *AvailabilityRepo) GetRange(
	ctx context.Context,
	unitID uuid.UUID,
	start, end time.Time,
) ([]domain.AvailabilityDay, error) {
	const op = "postgres.AvailabilityRepo.GetRange"

	rows, err := r.handle().Query(ctx,
		`SELECT unit_id, date, total_units, available_units,
		        price_override_cents, stop_sell, min_stay
		 FROM availability
		 WHERE unit_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date`,
		unitID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.AvailabilityDay
	for rows.Next() {
		var d domain.AvailabilityDay
		if err := rows.Scan(
			&d.UnitID, &d.Date, &d.TotalUnits, &d.AvailableUnits,
			&d.PriceOverrideCents, &d.StopSell, &d.MinStay,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// ReserveRange atomically decrements availability for every night of
// [start, end). The decrement is conditional on sufficient remaining units
// and no stop-sell; if any night fails the condition the whole statement
// touches fewer rows than nights and the caller's transaction must roll back.
//
// Returns:
//   - error: repository.ErrUnitsUnavailable if any night lacks capacity.
func (r *AvailabilityRepo) ReserveRange(
	ctx context.Context,
	unitID uuid.UUID,
	start, end time.Time,
	units int,
) error {
	const op = "postgres.AvailabilityRepo.ReserveRange"

	nights := domain.Nights(start, end)

	tag, err := r.handle().Exec(ctx,
		`UPDATE availability
		 SET available_units = available_units - $4
		 WHERE unit_id = $1
		   AND date >= $2 AND date < $3
		   AND available_units >= $4
		   AND NOT stop_sell`,
		unitID, start, end, units,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if int(tag.RowsAffected()) != nights {
		return fmt.Errorf("%s:%w", op, repository.ErrUnitsUnavailable)
	}

	return nil
}

// ReleaseByBooking restores the units a booking held, night by night, from
// its allocation rows. Restoration is clamped to total capacity so a resize
// between reserve and release can never push a row over its cap. Allocations
// already marked released are skipped, making the call idempotent.
//
// Returns the number of nights released.
func (r *AvailabilityRepo) ReleaseByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	const op = "postgres.AvailabilityRepo.ReleaseByBooking"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE availability a
		 SET available_units = LEAST(a.available_units + al.units, a.total_units)
		 FROM booking_allocations al
		 WHERE al.booking_id = $1
		   AND NOT al.released
		   AND a.unit_id = al.unit_id
		   AND a.date = al.date`,
		bookingID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if _, err := db.Exec(ctx,
		`UPDATE booking_allocations
		 SET released = TRUE, released_at = now()
		 WHERE booking_id = $1 AND NOT released`,
		bookingID,
	); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// Override is a partial update of availability rows over a date range.
// Nil fields are left unchanged; ClearPrice removes the per-night price
// override so the night falls back to base/season pricing. AvailableUnits is
// clamped into [0, total_units] per row.
type Override struct {
	PriceCents     *int64
	ClearPrice     bool
	StopSell       *bool
	MinStay        *int
	AvailableUnits *int
}

// ApplyOverride updates price, stop-sell and min-stay flags on every
// existing row of [start, end). Returns the number of rows touched; a count
// below the night span means part of the range is not initialized.
func (r *AvailabilityRepo) ApplyOverride(
	ctx context.Context,
	unitID uuid.UUID,
	start, end time.Time,
	ov Override,
) (int64, error) {
	const op = "postgres.AvailabilityRepo.ApplyOverride"

	tag, err := r.handle().Exec(ctx,
		`UPDATE availability
		 SET price_override_cents = CASE
		       WHEN $4::boolean THEN NULL
		       WHEN $5::bigint IS NOT NULL THEN $5
		       ELSE price_override_cents
		     END,
		     stop_sell = COALESCE($6, stop_sell),
		     min_stay  = COALESCE($7, min_stay),
		     available_units = LEAST(total_units, GREATEST(0, COALESCE($8::int, available_units)))
		 WHERE unit_id = $1 AND date >= $2 AND date < $3`,
		unitID, start, end, ov.ClearPrice, ov.PriceCents, ov.StopSell, ov.MinStay, ov.AvailableUnits,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// ResizeFuture applies a capacity change to all rows from a given date
// onward. Available units shift by the same delta as total units, clamped
// into [0, newTotal] so committed bookings are never double-counted.
func (r *AvailabilityRepo) ResizeFuture(
	ctx context.Context,
	unitID uuid.UUID,
	from time.Time,
	newTotal int,
) (int64, error) {
	const op = "postgres.AvailabilityRepo.ResizeFuture"

	tag, err := r.handle().Exec(ctx,
		`UPDATE availability
		 SET available_units = LEAST($3, GREATEST(0, available_units + ($3 - total_units))),
		     total_units = $3
		 WHERE unit_id = $1 AND date >= $2`,
		unitID, from, newTotal,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

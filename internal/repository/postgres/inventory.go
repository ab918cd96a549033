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
)

type InventoryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *InventoryRepo) With(db DB) *InventoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *InventoryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const unitColumns = `id, owner_id, name, kind, total_units, base_price_cents,
	min_stay_nights, weekend_surcharge_pct, requires_approval, is_active, created_at`

func scanUnit(row pgx.Row) (domain.InventoryUnit, error) {
	var u domain.InventoryUnit
	err := row.Scan(
		&u.ID, &u.OwnerID, &u.Name, &u.Kind, &u.TotalUnits, &u.BasePriceCents,
		&u.MinStayNights, &u.WeekendSurchargePct, &u.RequiresApproval, &u.IsActive, &u.CreatedAt,
	)
	return u, err
}

func (r *InventoryRepo) CreateUnit(ctx context.Context, u *domain.InventoryUnit) error {
	const op = "postgres.InventoryRepo.CreateUnit"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO inventory_units
		   (id, owner_id, name, kind, total_units, base_price_cents,
		    min_stay_nights, weekend_surcharge_pct, requires_approval, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		 RETURNING created_at`,
		u.ID, u.OwnerID, u.Name, u.Kind, u.TotalUnits, u.BasePriceCents,
		u.MinStayNights, u.WeekendSurchargePct, u.RequiresApproval,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	u.IsActive = true
	return nil
}

// GetUnit loads one unit regardless of its active flag; callers decide
// whether an inactive unit is acceptable.
func (r *InventoryRepo) GetUnit(ctx context.Context, id uuid.UUID) (domain.InventoryUnit, error) {
	const op = "postgres.InventoryRepo.GetUnit"

	u, err := scanUnit(r.handle().QueryRow(ctx,
		`SELECT `+unitColumns+` FROM inventory_units WHERE id = $1`, id))
	if err != nil {
		return domain.InventoryUnit{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return u, nil
}

func (r *InventoryRepo) ListUnitsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.InventoryUnit, error) {
	const op = "postgres.InventoryRepo.ListUnitsByOwner"

	rows, err := r.handle().Query(ctx,
		`SELECT `+unitColumns+`
		 FROM inventory_units
		 WHERE owner_id = $1
		 ORDER BY created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.InventoryUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// ListActiveUnits returns every unit still on sale, for the horizon loop.
func (r *InventoryRepo) ListActiveUnits(ctx context.Context) ([]domain.InventoryUnit, error) {
	const op = "postgres.InventoryRepo.ListActiveUnits"

	rows, err := r.handle().Query(ctx,
		`SELECT `+unitColumns+` FROM inventory_units WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.InventoryUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// UpdateUnit persists the mutable unit fields. Capacity changes must go
// through the service layer, which also resizes future availability rows.
func (r *InventoryRepo) UpdateUnit(ctx context.Context, u domain.InventoryUnit) error {
	const op = "postgres.InventoryRepo.UpdateUnit"

	tag, err := r.handle().Exec(ctx,
		`UPDATE inventory_units
		 SET name = $2, total_units = $3, base_price_cents = $4,
		     min_stay_nights = $5, weekend_surcharge_pct = $6, requires_approval = $7
		 WHERE id = $1`,
		u.ID, u.Name, u.TotalUnits, u.BasePriceCents,
		u.MinStayNights, u.WeekendSurchargePct, u.RequiresApproval,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *InventoryRepo) SetUnitActive(ctx context.Context, id uuid.UUID, active bool) error {
	const op = "postgres.InventoryRepo.SetUnitActive"

	tag, err := r.handle().Exec(ctx,
		`UPDATE inventory_units SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *InventoryRepo) CreateSeason(ctx context.Context, s *domain.Season) error {
	const op = "postgres.InventoryRepo.CreateSeason"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO seasons
		   (id, owner_id, unit_id, name, kind, value, starts_on, ends_on, priority, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		 RETURNING created_at`,
		s.ID, s.OwnerID, s.UnitID, s.Name, s.Kind, s.Value,
		s.StartsOn, s.EndsOn, s.Priority,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	s.IsActive = true
	return nil
}

func (r *InventoryRepo) UpdateSeason(ctx context.Context, s domain.Season) error {
	const op = "postgres.InventoryRepo.UpdateSeason"

	tag, err := r.handle().Exec(ctx,
		`UPDATE seasons
		 SET name = $2, kind = $3, value = $4, starts_on = $5, ends_on = $6,
		     priority = $7, is_active = $8
		 WHERE id = $1`,
		s.ID, s.Name, s.Kind, s.Value, s.StartsOn, s.EndsOn, s.Priority, s.IsActive,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

// SeasonsForStay returns every active season that could affect a stay on the
// given unit: unit-scoped seasons for that unit plus owner-wide ones, limited
// to those overlapping [start, end).
func (r *InventoryRepo) SeasonsForStay(
	ctx context.Context,
	ownerID, unitID uuid.UUID,
	start, end time.Time,
) ([]domain.Season, error) {
	const op = "postgres.InventoryRepo.SeasonsForStay"

	rows, err := r.handle().Query(ctx,
		`SELECT id, owner_id, unit_id, name, kind, value, starts_on, ends_on,
		        priority, is_active, created_at
		 FROM seasons
		 WHERE owner_id = $1
		   AND (unit_id IS NULL OR unit_id = $2)
		   AND is_active
		   AND starts_on < $4
		   AND ends_on >= $3
		 ORDER BY priority DESC, created_at`,
		ownerID, unitID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Season
	for rows.Next() {
		var s domain.Season
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.UnitID, &s.Name, &s.Kind, &s.Value,
			&s.StartsOn, &s.EndsOn, &s.Priority, &s.IsActive, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *InventoryRepo) ListSeasons(ctx context.Context, ownerID uuid.UUID) ([]domain.Season, error) {
	const op = "postgres.InventoryRepo.ListSeasons"

	rows, err := r.handle().Query(ctx,
		`SELECT id, owner_id, unit_id, name, kind, value, starts_on, ends_on,
		        priority, is_active, created_at
		 FROM seasons
		 WHERE owner_id = $1
		 ORDER BY starts_on`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Season
	for rows.Next() {
		var s domain.Season
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.UnitID, &s.Name, &s.Kind, &s.Value,
			&s.StartsOn, &s.EndsOn, &s.Priority, &s.IsActive, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// GetPolicy returns the owner's deposit and long-stay policy, falling back
// to the provided default when the owner never configured one.
func (r *InventoryRepo) GetPolicy(ctx context.Context, ownerID uuid.UUID, def domain.OwnerPolicy) (domain.OwnerPolicy, error) {
	const op = "postgres.InventoryRepo.GetPolicy"

	var p domain.OwnerPolicy
	err := r.handle().QueryRow(ctx,
		`SELECT owner_id, deposit_percent, deposit_min_cents, tier7_pct, tier14_pct, tier30_pct
		 FROM owner_policies
		 WHERE owner_id = $1`,
		ownerID,
	).Scan(&p.OwnerID, &p.DepositPercent, &p.DepositMinCents, &p.Tier7Pct, &p.Tier14Pct, &p.Tier30Pct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			def.OwnerID = ownerID
			return def, nil
		}
		return domain.OwnerPolicy{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return p, nil
}

func (r *InventoryRepo) UpsertPolicy(ctx context.Context, p domain.OwnerPolicy) error {
	const op = "postgres.InventoryRepo.UpsertPolicy"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO owner_policies
		   (owner_id, deposit_percent, deposit_min_cents, tier7_pct, tier14_pct, tier30_pct)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (owner_id) DO UPDATE
		 SET deposit_percent = EXCLUDED.deposit_percent,
		     deposit_min_cents = EXCLUDED.deposit_min_cents,
		     tier7_pct = EXCLUDED.tier7_pct,
		     tier14_pct = EXCLUDED.tier14_pct,
		     tier30_pct = EXCLUDED.tier30_pct`,
		p.OwnerID, p.DepositPercent, p.DepositMinCents, p.Tier7Pct, p.Tier14Pct, p.Tier30Pct,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
	redisx "github.com/staymarket/staycore/internal/redis"
	"github.com/staymarket/staycore/internal/repository"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
	"github.com/staymarket/staycore/internal/uow"
)

type Config struct {
	HorizonDays         int
	HorizonCeilingYears int
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisx.UnitsPubSub
	uow    *uow.UoW
	cfg    Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.UnitsPubSub,
	cfg Config,
) *Service {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 730
	}
	if cfg.HorizonCeilingYears <= 0 {
		cfg.HorizonCeilingYears = 10
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		cfg:    cfg,
	}
}

type CreateUnitInput struct {
	OwnerID             uuid.UUID
	Name                string
	Kind                domain.UnitKind
	TotalUnits          int
	BasePriceCents      int64
	MinStayNights       int
	WeekendSurchargePct int
	RequiresApproval    bool
}

// CreateUnit registers a bookable unit and seeds its availability through
// the standard horizon in the same transaction, so the unit is sellable the
// moment it exists.
func (s *Service) CreateUnit(ctx context.Context, in CreateUnitInput) (domain.InventoryUnit, error) {
	const op = "service.inventory.CreateUnit"

	if err := validateUnit(in.Name, in.Kind, in.TotalUnits, in.BasePriceCents, in.MinStayNights, in.WeekendSurchargePct); err != nil {
		return domain.InventoryUnit{}, fmt.Errorf("%s:%w", op, err)
	}

	totalUnits := in.TotalUnits
	if in.Kind == domain.KindEventSpace {
		totalUnits = 1
	}

	u := domain.InventoryUnit{
		ID:                  uuid.New(),
		OwnerID:             in.OwnerID,
		Name:                in.Name,
		Kind:                in.Kind,
		TotalUnits:          totalUnits,
		BasePriceCents:      in.BasePriceCents,
		MinStayNights:       in.MinStayNights,
		WeekendSurchargePct: in.WeekendSurchargePct,
		RequiresApproval:    in.RequiresApproval,
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Inventory().With(tx).CreateUnit(ctx, &u); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		today := domain.DateOnly(time.Now())
		end := today.AddDate(0, 0, s.cfg.HorizonDays)

		if _, err := s.store.Availability().With(tx).InitializeRange(ctx, u.ID, today, end, totalUnits, nil, 0); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		return nil
	})
	if err != nil {
		return domain.InventoryUnit{}, err
	}

	return u, nil
}

func (s *Service) GetUnit(ctx context.Context, id uuid.UUID) (domain.InventoryUnit, error) {
	const op = "service.inventory.GetUnit"

	u, err := s.store.Inventory().GetUnit(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.InventoryUnit{}, fmt.Errorf("%s:%w", op, ErrUnitNotFound)
		}
		return domain.InventoryUnit{}, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}

func (s *Service) ListUnits(ctx context.Context, ownerID uuid.UUID) ([]domain.InventoryUnit, error) {
	const op = "service.inventory.ListUnits"

	units, err := s.store.Inventory().ListUnitsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return units, nil
}

type UpdateUnitInput struct {
	Name                string
	TotalUnits          int
	BasePriceCents      int64
	MinStayNights       int
	WeekendSurchargePct int
	RequiresApproval    bool
}

// UpdateUnit saves unit changes. A capacity change also resizes every future
// availability row: available units shift by the same delta, clamped so
// nights already holding bookings never go negative or over cap.
func (s *Service) UpdateUnit(ctx context.Context, id uuid.UUID, in UpdateUnitInput) (domain.InventoryUnit, error) {
	const op = "service.inventory.UpdateUnit"

	var out domain.InventoryUnit

	err := s.uow.DoRetry(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		u, err := s.store.Inventory().With(tx).GetUnit(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrUnitNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := validateUnit(in.Name, u.Kind, in.TotalUnits, in.BasePriceCents, in.MinStayNights, in.WeekendSurchargePct); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		totalUnits := in.TotalUnits
		if u.Kind == domain.KindEventSpace {
			totalUnits = 1
		}

		resized := totalUnits != u.TotalUnits

		u.Name = in.Name
		u.TotalUnits = totalUnits
		u.BasePriceCents = in.BasePriceCents
		u.MinStayNights = in.MinStayNights
		u.WeekendSurchargePct = in.WeekendSurchargePct
		u.RequiresApproval = in.RequiresApproval

		if err := s.store.Inventory().With(tx).UpdateUnit(ctx, u); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if resized {
			today := domain.DateOnly(time.Now())
			if _, err := s.store.Availability().With(tx).ResizeFuture(ctx, id, today, totalUnits); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		out = u

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateUnit(ctx, id)
			_ = s.pubsub.PublishUnitChanged(ctx, id)
		})

		return nil
	})
	if err != nil {
		return domain.InventoryUnit{}, err
	}

	return out, nil
}

// DeactivateUnit takes a unit off sale. Refused while any booking still
// holds capacity; history stays intact because units are never deleted.
func (s *Service) DeactivateUnit(ctx context.Context, id uuid.UUID) error {
	const op = "service.inventory.DeactivateUnit"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		active, err := s.store.Bookings().With(tx).CountActiveByUnit(ctx, id)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		if active > 0 {
			return fmt.Errorf("%s: %d bookings: %w", op, active, ErrHasActiveBookings)
		}

		if err := s.store.Inventory().With(tx).SetUnitActive(ctx, id, false); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrUnitNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateUnit(ctx, id)
			_ = s.pubsub.PublishUnitChanged(ctx, id)
		})

		return nil
	})
}

// InitializeAvailability seeds rows for [start, end) at the unit's capacity,
// with an optional per-night price override and min-stay floor stamped onto
// the new rows. Existing rows are never overwritten. The end date must stay
// under the ceiling so a typo cannot flood the table with decades of rows.
func (s *Service) InitializeAvailability(
	ctx context.Context,
	unitID uuid.UUID,
	start, end time.Time,
	priceOverride *int64,
	minStay int,
) (int64, error) {
	const op = "service.inventory.InitializeAvailability"

	start, end = domain.DateOnly(start), domain.DateOnly(end)

	if !end.After(start) {
		return 0, fmt.Errorf("%s:%w", op, ValidationError{Field: "range", Reason: "end must be after start"})
	}
	if priceOverride != nil && *priceOverride < 0 {
		return 0, fmt.Errorf("%s:%w", op, ValidationError{Field: "price_override_cents", Reason: "must not be negative"})
	}
	if minStay < 0 {
		return 0, fmt.Errorf("%s:%w", op, ValidationError{Field: "min_stay", Reason: "must not be negative"})
	}

	ceiling := domain.DateOnly(time.Now()).AddDate(s.cfg.HorizonCeilingYears, 0, 0)
	if end.After(ceiling) {
		return 0, fmt.Errorf("%s:%w", op, ErrHorizonCeiling)
	}

	u, err := s.GetUnit(ctx, unitID)
	if err != nil {
		return 0, err
	}

	inserted, err := s.store.Availability().InitializeRange(ctx, unitID, start, end, u.TotalUnits, priceOverride, minStay)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return inserted, nil
}

// ApplyOverride adjusts price, stop-sell or min-stay over a date range.
// Returns how many nights changed.
func (s *Service) ApplyOverride(
	ctx context.Context,
	unitID uuid.UUID,
	start, end time.Time,
	ov postgresrepo.Override,
) (int64, error) {
	const op = "service.inventory.ApplyOverride"

	start, end = domain.DateOnly(start), domain.DateOnly(end)

	if !end.After(start) {
		return 0, fmt.Errorf("%s:%w", op, ValidationError{Field: "range", Reason: "end must be after start"})
	}
	if ov.PriceCents != nil && *ov.PriceCents < 0 {
		return 0, fmt.Errorf("%s:%w", op, ValidationError{Field: "price_cents", Reason: "must not be negative"})
	}
	if ov.MinStay != nil && *ov.MinStay < 0 {
		return 0, fmt.Errorf("%s:%w", op, ValidationError{Field: "min_stay", Reason: "must not be negative"})
	}

	if _, err := s.GetUnit(ctx, unitID); err != nil {
		return 0, err
	}

	var touched int64

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		n, err := s.store.Availability().With(tx).ApplyOverride(ctx, unitID, start, end, ov)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		touched = n

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateUnit(ctx, unitID)
			_ = s.pubsub.PublishUnitChanged(ctx, unitID)
		})

		return nil
	})
	if err != nil {
		return 0, err
	}

	return touched, nil
}

type SeasonInput struct {
	OwnerID  uuid.UUID
	UnitID   *uuid.UUID
	Name     string
	Kind     domain.SeasonKind
	Value    int64
	StartsOn time.Time
	EndsOn   time.Time
	Priority int
}

func (s *Service) CreateSeason(ctx context.Context, in SeasonInput) (domain.Season, error) {
	const op = "service.inventory.CreateSeason"

	if err := validateSeason(in); err != nil {
		return domain.Season{}, fmt.Errorf("%s:%w", op, err)
	}

	season := domain.Season{
		ID:       uuid.New(),
		OwnerID:  in.OwnerID,
		UnitID:   in.UnitID,
		Name:     in.Name,
		Kind:     in.Kind,
		Value:    in.Value,
		StartsOn: domain.DateOnly(in.StartsOn),
		EndsOn:   domain.DateOnly(in.EndsOn),
		Priority: in.Priority,
	}

	if err := s.store.Inventory().CreateSeason(ctx, &season); err != nil {
		return domain.Season{}, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateSeasonScope(ctx, season)

	return season, nil
}

func (s *Service) UpdateSeason(ctx context.Context, season domain.Season) error {
	const op = "service.inventory.UpdateSeason"

	if err := validateSeason(SeasonInput{
		OwnerID: season.OwnerID, UnitID: season.UnitID, Name: season.Name,
		Kind: season.Kind, Value: season.Value,
		StartsOn: season.StartsOn, EndsOn: season.EndsOn, Priority: season.Priority,
	}); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	season.StartsOn = domain.DateOnly(season.StartsOn)
	season.EndsOn = domain.DateOnly(season.EndsOn)

	if err := s.store.Inventory().UpdateSeason(ctx, season); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrSeasonNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateSeasonScope(ctx, season)

	return nil
}

func (s *Service) ListSeasons(ctx context.Context, ownerID uuid.UUID) ([]domain.Season, error) {
	const op = "service.inventory.ListSeasons"

	seasons, err := s.store.Inventory().ListSeasons(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return seasons, nil
}

func (s *Service) GetPolicy(ctx context.Context, ownerID uuid.UUID, def domain.OwnerPolicy) (domain.OwnerPolicy, error) {
	const op = "service.inventory.GetPolicy"

	p, err := s.store.Inventory().GetPolicy(ctx, ownerID, def)
	if err != nil {
		return domain.OwnerPolicy{}, fmt.Errorf("%s:%w", op, err)
	}

	return p, nil
}

func (s *Service) UpsertPolicy(ctx context.Context, p domain.OwnerPolicy) error {
	const op = "service.inventory.UpsertPolicy"

	for _, pct := range []struct {
		name string
		v    int
	}{
		{"deposit_percent", p.DepositPercent},
		{"tier7_pct", p.Tier7Pct},
		{"tier14_pct", p.Tier14Pct},
		{"tier30_pct", p.Tier30Pct},
	} {
		if pct.v < 0 || pct.v > 100 {
			return fmt.Errorf("%s:%w", op, ValidationError{Field: pct.name, Reason: "must be between 0 and 100"})
		}
	}
	if p.DepositMinCents < 0 {
		return fmt.Errorf("%s:%w", op, ValidationError{Field: "deposit_min_cents", Reason: "must not be negative"})
	}

	if err := s.store.Inventory().UpsertPolicy(ctx, p); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// invalidateSeasonScope drops cached calendars affected by a season change:
// one unit when scoped, all of the owner's units otherwise.
func (s *Service) invalidateSeasonScope(ctx context.Context, season domain.Season) {
	if season.UnitID != nil {
		_ = s.cache.InvalidateUnit(ctx, *season.UnitID)
		_ = s.pubsub.PublishUnitChanged(ctx, *season.UnitID)
		return
	}

	units, err := s.store.Inventory().ListUnitsByOwner(ctx, season.OwnerID)
	if err != nil {
		return
	}
	for _, u := range units {
		_ = s.cache.InvalidateUnit(ctx, u.ID)
		_ = s.pubsub.PublishUnitChanged(ctx, u.ID)
	}
}

func validateUnit(name string, kind domain.UnitKind, totalUnits int, basePrice int64, minStay, weekendPct int) error {
	if name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if kind != domain.KindRoomType && kind != domain.KindEventSpace {
		return ValidationError{Field: "kind", Reason: "must be room_type or event_space"}
	}
	if totalUnits <= 0 {
		return ValidationError{Field: "total_units", Reason: "must be positive"}
	}
	if basePrice < 0 {
		return ValidationError{Field: "base_price_cents", Reason: "must not be negative"}
	}
	if minStay < 0 {
		return ValidationError{Field: "min_stay_nights", Reason: "must not be negative"}
	}
	if weekendPct < 0 || weekendPct > 100 {
		return ValidationError{Field: "weekend_surcharge_pct", Reason: "must be between 0 and 100"}
	}
	return nil
}

func validateSeason(in SeasonInput) error {
	if in.Name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.Kind != domain.SeasonPercent && in.Kind != domain.SeasonFixed {
		return ValidationError{Field: "kind", Reason: "must be percent or fixed"}
	}
	if domain.DateOnly(in.EndsOn).Before(domain.DateOnly(in.StartsOn)) {
		return ValidationError{Field: "range", Reason: "ends_on must not precede starts_on"}
	}
	if in.Kind == domain.SeasonPercent && in.Value < -100 {
		return ValidationError{Field: "value", Reason: "percent discount cannot exceed 100"}
	}
	return nil
}

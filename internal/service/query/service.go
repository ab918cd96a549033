package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/pricing"
	redisx "github.com/staymarket/staycore/internal/redis"
	"github.com/staymarket/staycore/internal/repository"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
)

type Config struct {
	UnitSummaryTTL  time.Duration
	CalendarTTL     time.Duration
	MaxCalendarDays int
	DefaultPolicy   domain.OwnerPolicy
}

// Service answers reads: calendars, quotes and booking lookups. Hot paths
// go through the Redis cache; writes elsewhere invalidate by unit.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.UnitSummaryTTL <= 0 {
		cfg.UnitSummaryTTL = 60 * time.Second
	}

	if cfg.CalendarTTL <= 0 {
		cfg.CalendarTTL = 15 * time.Second
	}

	if cfg.MaxCalendarDays <= 0 {
		cfg.MaxCalendarDays = 366
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

func (s *Service) GetUnit(ctx context.Context, id uuid.UUID) (domain.InventoryUnit, error) {
	const op = "service.query.GetUnit"

	unit, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyUnitSummary(id),
		s.cfg.UnitSummaryTTL,
		func(ctx context.Context) (domain.InventoryUnit, error) {
			u, err := s.store.Inventory().GetUnit(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.InventoryUnit{}, ErrUnitNotFound
				}
				return domain.InventoryUnit{}, err
			}
			return u, nil
		},
	)
	if err != nil {
		return domain.InventoryUnit{}, fmt.Errorf("%s: %w", op, err)
	}

	return unit, nil
}

// CalendarDay is one night of a unit's public calendar: remaining capacity
// plus the nightly price after overrides, weekend surcharge and seasons.
type CalendarDay struct {
	Date           time.Time `json:"date"`
	AvailableUnits int       `json:"available_units"`
	TotalUnits     int       `json:"total_units"`
	PriceCents     int64     `json:"price_cents"`
	StopSell       bool      `json:"stop_sell"`
	MinStay        int       `json:"min_stay"`
}

// Calendar returns the per-night calendar for [start, end), cached per
// window. Nights beyond the initialized horizon are simply absent.
func (s *Service) Calendar(ctx context.Context, unitID uuid.UUID, start, end time.Time) ([]CalendarDay, error) {
	const op = "service.query.Calendar"

	start, end = domain.DateOnly(start), domain.DateOnly(end)

	if !end.After(start) {
		return nil, fmt.Errorf("%s: %w", op, ErrBadRange)
	}
	if domain.Nights(start, end) > s.cfg.MaxCalendarDays {
		return nil, fmt.Errorf("%s: %w", op, ErrRangeTooWide)
	}

	key := redisx.KeyUnitCalendar(unitID,
		start.Format(time.DateOnly), end.Format(time.DateOnly))

	days, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.CalendarTTL,
		func(ctx context.Context) ([]CalendarDay, error) {
			return s.loadCalendar(ctx, unitID, start, end)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return days, nil
}

func (s *Service) loadCalendar(ctx context.Context, unitID uuid.UUID, start, end time.Time) ([]CalendarDay, error) {
	unit, err := s.store.Inventory().GetUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}

	rows, err := s.store.Availability().GetRange(ctx, unitID, start, end)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []CalendarDay{}, nil
	}

	seasons, err := s.store.Inventory().SeasonsForStay(ctx, unit.OwnerID, unitID, start, end)
	if err != nil {
		return nil, err
	}

	// Price night-by-night with an empty policy: long-stay discounts depend
	// on the guest's stay length and do not belong on a calendar.
	quote, err := pricing.Calculate(pricing.Input{
		Unit:    unit,
		Days:    rows,
		Seasons: seasons,
		Start:   domain.DateOnly(rows[0].Date),
		End:     domain.DateOnly(rows[len(rows)-1].Date).AddDate(0, 0, 1),
		Units:   1,
	})
	if err != nil {
		return nil, err
	}

	priceByDate := make(map[time.Time]int64, len(quote.Nights))
	for _, n := range quote.Nights {
		priceByDate[n.Date] = n.PriceCents
	}

	out := make([]CalendarDay, 0, len(rows))
	for _, r := range rows {
		date := domain.DateOnly(r.Date)
		out = append(out, CalendarDay{
			Date:           date,
			AvailableUnits: r.AvailableUnits,
			TotalUnits:     r.TotalUnits,
			PriceCents:     priceByDate[date],
			StopSell:       r.StopSell,
			MinStay:        r.MinStay,
		})
	}

	return out, nil
}

// Quote prices a prospective stay without reserving anything. It applies the
// same pricing rules as booking creation, so the number a guest sees is the
// number they will be charged.
func (s *Service) Quote(ctx context.Context, unitID uuid.UUID, start, end time.Time, units int) (pricing.Quote, error) {
	const op = "service.query.Quote"

	start, end = domain.DateOnly(start), domain.DateOnly(end)

	unit, err := s.store.Inventory().GetUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pricing.Quote{}, fmt.Errorf("%s: %w", op, ErrUnitNotFound)
		}
		return pricing.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	if unit.Kind == domain.KindEventSpace {
		units = 1
	}

	days, err := s.store.Availability().GetRange(ctx, unitID, start, end)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	seasons, err := s.store.Inventory().SeasonsForStay(ctx, unit.OwnerID, unitID, start, end)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	policy, err := s.store.Inventory().GetPolicy(ctx, unit.OwnerID, s.cfg.DefaultPolicy)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	quote, err := pricing.Calculate(pricing.Input{
		Unit: unit, Days: days, Seasons: seasons, Policy: policy,
		Start: start, End: end, Units: units,
	})
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	return quote, nil
}

// BookingDetails bundles a booking with its money trail and audit history.
type BookingDetails struct {
	Booking     domain.Booking
	Allocations []domain.BookingAllocation
	Invoice     domain.Invoice
	Payments    []domain.Payment
	Events      []domain.BookingEvent
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (BookingDetails, error) {
	const op = "service.query.GetBooking"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return BookingDetails{}, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return BookingDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	allocs, err := s.store.Bookings().Allocations(ctx, id)
	if err != nil {
		return BookingDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	inv, err := s.store.Payments().GetInvoice(ctx, id)
	if err != nil {
		return BookingDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	payments, err := s.store.Payments().ListByBooking(ctx, id)
	if err != nil {
		return BookingDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	events, err := s.store.Bookings().ListEvents(ctx, id)
	if err != nil {
		return BookingDetails{}, fmt.Errorf("%s: %w", op, err)
	}

	return BookingDetails{
		Booking:     b,
		Allocations: allocs,
		Invoice:     inv,
		Payments:    payments,
		Events:      events,
	}, nil
}

func (s *Service) ListGuestBookings(ctx context.Context, email string) ([]domain.Booking, error) {
	const op = "service.query.ListGuestBookings"

	bookings, err := s.store.Bookings().ListByGuest(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func (s *Service) ListUnitBookings(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	const op = "service.query.ListUnitBookings"

	bookings, err := s.store.Bookings().ListByUnit(ctx, unitID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func (s *Service) Occupancy(ctx context.Context, unitID uuid.UUID, start, end time.Time) (domain.OccupancySummary, error) {
	const op = "service.query.Occupancy"

	sum, err := s.store.Bookings().Occupancy(ctx, unitID, domain.DateOnly(start), domain.DateOnly(end))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.OccupancySummary{}, fmt.Errorf("%s: %w", op, ErrUnitNotFound)
		}
		return domain.OccupancySummary{}, fmt.Errorf("%s: %w", op, err)
	}

	return sum, nil
}

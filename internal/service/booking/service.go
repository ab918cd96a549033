package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/metrics"
	"github.com/staymarket/staycore/internal/pricing"
	redisx "github.com/staymarket/staycore/internal/redis"
	"github.com/staymarket/staycore/internal/repository"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
	"github.com/staymarket/staycore/internal/uow"
)

type Config struct {
	PaymentDeadline time.Duration
	DefaultPolicy   domain.OwnerPolicy
}

type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	pubsub  *redisx.UnitsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	uow     *uow.UoW
	cfg     Config
	log     *slog.Logger
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.UnitsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
	log *slog.Logger,
) *Service {
	if cfg.PaymentDeadline <= 0 {
		cfg.PaymentDeadline = 48 * time.Hour
	}

	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
		log:     log,
	}
}

type CreateInput struct {
	UnitID     uuid.UUID
	GuestName  string
	GuestEmail string
	Start      time.Time
	End        time.Time
	Units      int
}

// Create places a booking: it validates the stay against availability and
// min-stay rules, prices it, atomically decrements the nights' capacity and
// writes the booking with its allocations and opening invoice, all in one
// serializable transaction. Room-type bookings start in pending_payment;
// event spaces and approval-gated units start in pending_approval.
//
// The whole transaction is retried on serialization conflicts, so two guests
// racing for the last unit resolve cleanly: one wins, the other gets
// UnavailableError.
func (s *Service) Create(ctx context.Context, in CreateInput, rlKey string) (domain.Booking, error) {
	const op = "service.booking.Create"

	start, end := domain.DateOnly(in.Start), domain.DateOnly(in.End)
	nights := domain.Nights(start, end)

	if nights <= 0 {
		return domain.Booking{}, fmt.Errorf("%s: check-out must be after check-in", op)
	}
	if in.Units <= 0 {
		return domain.Booking{}, fmt.Errorf("%s: unit count must be positive", op)
	}
	if in.GuestEmail == "" {
		return domain.Booking{}, fmt.Errorf("%s: guest email is required", op)
	}
	if today := domain.DateOnly(time.Now()); start.Before(today) {
		return domain.Booking{}, fmt.Errorf("%s: stay cannot start in the past", op)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return domain.Booking{}, fmt.Errorf("%s: retry in %s: %w", op, retry, ErrRateLimited)
		}
	}

	var booking domain.Booking

	err := s.uow.DoRetry(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		unit, err := s.store.Inventory().With(tx).GetUnit(ctx, in.UnitID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrUnitNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if !unit.IsActive {
			return fmt.Errorf("%s:%w", op, ErrUnitInactive)
		}

		units := in.Units
		if unit.Kind == domain.KindEventSpace {
			units = 1
		}

		days, err := s.store.Availability().With(tx).GetRange(ctx, unit.ID, start, end)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := checkStay(unit, days, start, end, units, nights); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		seasons, err := s.store.Inventory().With(tx).SeasonsForStay(ctx, unit.OwnerID, unit.ID, start, end)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		policy, err := s.store.Inventory().With(tx).GetPolicy(ctx, unit.OwnerID, s.cfg.DefaultPolicy)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		quote, err := pricing.Calculate(pricing.Input{
			Unit: unit, Days: days, Seasons: seasons, Policy: policy,
			Start: start, End: end, Units: units,
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Availability().With(tx).ReserveRange(ctx, unit.ID, start, end, units); err != nil {
			if errors.Is(err, repository.ErrUnitsUnavailable) {
				metrics.OversellRejections.Inc()
				return fmt.Errorf("%s:%w", op, firstBlockedNight(days, units))
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		status := domain.StatusPendingPayment
		if unit.RequiresApproval || unit.Kind == domain.KindEventSpace {
			status = domain.StatusPendingApproval
		}

		b := domain.Booking{
			ID:                   uuid.New(),
			UnitID:               unit.ID,
			GuestName:            in.GuestName,
			GuestEmail:           in.GuestEmail,
			Start:                start,
			End:                  end,
			Units:                units,
			Nights:               nights,
			TotalPriceCents:      quote.TotalCents,
			DepositRequiredCents: quote.DepositRequiredCents,
			Status:               status,
			PaymentDeadline:      time.Now().Add(s.cfg.PaymentDeadline),
		}

		if err := s.store.Bookings().With(tx).Insert(ctx, &b); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Bookings().With(tx).InsertEvent(ctx, b.ID, "created", "guest", ""); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		booking = b

		after(func(ctx context.Context) {
			metrics.BookingsCreated.WithLabelValues(string(status)).Inc()
			_ = s.cache.InvalidateUnit(ctx, unit.ID)
			_ = s.pubsub.PublishUnitChanged(ctx, unit.ID)
		})

		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	return booking, nil
}

// Confirm moves a booking to confirmed. Bookings awaiting payment must have
// the required deposit covered by the ledger first; approval-gated bookings
// are confirmed by the provider without a deposit gate.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor string) (domain.Booking, error) {
	const op = "service.booking.Confirm"

	return s.transition(ctx, op, id, domain.StatusConfirmed, domain.SourcesFor(domain.StatusConfirmed), actor, "",
		func(ctx context.Context, tx postgresrepo.DB, b domain.Booking) error {
			if b.Status != domain.StatusPendingPayment {
				return nil
			}

			paid, err := s.store.Payments().With(tx).SumPaid(ctx, b.ID)
			if err != nil {
				return err
			}
			if paid < b.DepositRequiredCents {
				return ErrDepositNotMet
			}
			return nil
		}, false)
}

// Reject declines a pending-approval booking and releases its nights.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor, reason string) (domain.Booking, error) {
	const op = "service.booking.Reject"

	return s.transition(ctx, op, id, domain.StatusRejected, domain.SourcesFor(domain.StatusRejected), actor, reason, nil, true)
}

// Cancel releases a booking's nights back to availability and marks it
// cancelled. Allowed from any pre-stay status; stays already checked in must
// run to completion.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (domain.Booking, error) {
	const op = "service.booking.Cancel"

	b, err := s.transition(ctx, op, id, domain.StatusCancelled, domain.SourcesFor(domain.StatusCancelled), actor, reason, nil, true)
	if err == nil {
		metrics.BookingsCancelled.WithLabelValues(actor).Inc()
	}
	return b, err
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, actor string) (domain.Booking, error) {
	const op = "service.booking.CheckIn"

	return s.transition(ctx, op, id, domain.StatusCheckedIn, domain.SourcesFor(domain.StatusCheckedIn), actor, "", nil, false)
}

// CheckOut completes a stay. The nights stay consumed: the guest used them.
func (s *Service) CheckOut(ctx context.Context, id uuid.UUID, actor string) (domain.Booking, error) {
	const op = "service.booking.CheckOut"

	return s.transition(ctx, op, id, domain.StatusCompleted, domain.SourcesFor(domain.StatusCompleted), actor, "", nil, false)
}

// transition is the shared guarded status move: an optional pre-check, the
// source-guarded UPDATE, optional release of held nights, the audit row, and
// the cache/pubsub hooks after commit. Callers narrow `from` below the state
// machine's full source set when only a subset may move (the expiry sweep).
func (s *Service) transition(
	ctx context.Context,
	op string,
	id uuid.UUID,
	to domain.BookingStatus,
	from []domain.BookingStatus,
	actor, reason string,
	pre func(ctx context.Context, tx postgresrepo.DB, b domain.Booking) error,
	release bool,
) (domain.Booking, error) {
	var out domain.Booking

	err := s.uow.DoRetry(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		b, err := s.store.Bookings().With(tx).Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if pre != nil {
			if err := pre(ctx, tx, b); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		err = s.store.Bookings().With(tx).UpdateStatus(ctx, id, to, from)
		if err != nil {
			if errors.Is(err, repository.ErrIllegalTransition) {
				return fmt.Errorf("%s:%w", op, IllegalTransitionError{From: b.Status, To: to})
			}
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if release {
			if _, err := s.store.Availability().With(tx).ReleaseByBooking(ctx, id); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
			if reason != "" || actor != "" {
				if err := s.store.Bookings().With(tx).SetCancelInfo(ctx, id, reason, actor); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}
			}
		}

		if err := s.store.Bookings().With(tx).InsertEvent(ctx, id, string(to), actor, reason); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		out, err = s.store.Bookings().With(tx).Get(ctx, id)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateBooking(ctx, id)
			_ = s.cache.InvalidateUnit(ctx, b.UnitID)
			_ = s.pubsub.PublishUnitChanged(ctx, b.UnitID)
		})

		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	return out, nil
}

// CancelExpired sweeps bookings whose payment deadline has passed while
// still in pending_payment, cancelling each in its own transaction. The
// guarded UPDATE accepts pending_payment as the only source: a booking that
// was paid and confirmed between the listing and the cancel is left alone.
// One stuck booking never blocks the rest of the batch.
func (s *Service) CancelExpired(ctx context.Context, limit int) (int, error) {
	const op = "service.booking.CancelExpired"

	expired, err := s.store.Bookings().ListExpiredPendingPayment(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	sweepSources := []domain.BookingStatus{domain.StatusPendingPayment}

	var cancelled int
	for _, b := range expired {
		_, err := s.transition(ctx, op, b.ID, domain.StatusCancelled, sweepSources,
			"system", "payment deadline passed", nil, true)
		if err != nil {
			// Confirmed or cancelled concurrently; skip it.
			s.log.Warn("expired booking sweep: cancel skipped",
				slog.String("booking_id", b.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		metrics.BookingsCancelled.WithLabelValues("system").Inc()
		cancelled++
	}

	return cancelled, nil
}

// checkStay validates the stay against availability rows: full horizon
// coverage, stop-sell, per-night capacity, and the strictest min-stay across
// the range (the unit default acts as the floor).
func checkStay(
	unit domain.InventoryUnit,
	days []domain.AvailabilityDay,
	start, end time.Time,
	units, nights int,
) error {
	byDate := make(map[time.Time]domain.AvailabilityDay, len(days))
	for _, d := range days {
		byDate[domain.DateOnly(d.Date)] = d
	}

	minStay := unit.MinStayNights
	for _, date := range domain.DatesIn(start, end) {
		row, ok := byDate[date]
		if !ok {
			return NotInitializedError{UnitID: unit.ID, Date: date}
		}
		if row.StopSell {
			return UnavailableError{Date: date, StopSell: true}
		}
		if row.AvailableUnits < units {
			return UnavailableError{Date: date}
		}
		if row.MinStay > minStay {
			minStay = row.MinStay
		}
	}

	if nights < minStay {
		return MinStayError{Required: minStay, Nights: nights}
	}

	return nil
}

// firstBlockedNight picks the night to report when the atomic reserve lost a
// race after checkStay passed; falls back to a generic first-night error.
func firstBlockedNight(days []domain.AvailabilityDay, units int) UnavailableError {
	for _, d := range days {
		if d.StopSell {
			return UnavailableError{Date: domain.DateOnly(d.Date), StopSell: true}
		}
		if d.AvailableUnits < units {
			return UnavailableError{Date: domain.DateOnly(d.Date)}
		}
	}
	if len(days) > 0 {
		return UnavailableError{Date: domain.DateOnly(days[0].Date)}
	}
	return UnavailableError{}
}

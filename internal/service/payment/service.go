package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/metrics"
	"github.com/staymarket/staycore/internal/repository"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
	"github.com/staymarket/staycore/internal/uow"
)

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
	}
}

type RegisterInput struct {
	BookingID   uuid.UUID
	AmountCents int64
	Method      string
	Type        domain.PaymentType
	IsManual    bool
	Reference   string
	ConfirmedBy string
}

// Register appends a payment to the booking's ledger and recomputes the
// invoice from the new total, all inside one serializable transaction so the
// overpayment guard holds under concurrent registration.
//
// Returns:
//   - error: payment.OverpaymentError if the ledger would exceed the total.
//   - error: payment.ErrBookingClosed if the booking is in a terminal state.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Payment, domain.Invoice, error) {
	const op = "service.payment.Register"

	if in.AmountCents <= 0 {
		return domain.Payment{}, domain.Invoice{}, fmt.Errorf("%s:%w", op, ErrNonPositive)
	}

	var (
		pay domain.Payment
		inv domain.Invoice
	)

	err := s.uow.DoRetry(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		b, err := s.store.Bookings().With(tx).Get(ctx, in.BookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if b.Status.IsTerminal() {
			return fmt.Errorf("%s:%w", op, ErrBookingClosed)
		}

		paid, err := s.store.Payments().With(tx).SumPaid(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if paid+in.AmountCents > b.TotalPriceCents {
			return fmt.Errorf("%s:%w", op, OverpaymentError{
				AmountCents:    in.AmountCents,
				RemainingCents: b.TotalPriceCents - paid,
			})
		}

		p := domain.Payment{
			ID:          uuid.New(),
			BookingID:   b.ID,
			AmountCents: in.AmountCents,
			Method:      in.Method,
			Type:        in.Type,
			IsManual:    in.IsManual,
			Reference:   in.Reference,
			ConfirmedBy: in.ConfirmedBy,
			ConfirmedAt: time.Now(),
		}
		if p.Type == "" {
			p.Type = classify(paid, in.AmountCents, b.TotalPriceCents)
		}

		if err := s.store.Payments().With(tx).Insert(ctx, &p); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		newPaid := paid + in.AmountCents
		status := domain.DeriveInvoiceStatus(newPaid, b.TotalPriceCents, b.PaymentDeadline, time.Now())

		if err := s.store.Payments().With(tx).RefreshInvoice(ctx, b.ID, newPaid, status); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Bookings().With(tx).InsertEvent(ctx, b.ID, "payment_registered",
			in.ConfirmedBy, fmt.Sprintf("%d cents via %s", in.AmountCents, in.Method)); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		inv, err = s.store.Payments().With(tx).GetInvoice(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		pay = p

		after(func(ctx context.Context) {
			metrics.PaymentsRegistered.WithLabelValues(string(p.Type)).Inc()
			_ = s.cache.InvalidateBooking(ctx, b.ID)
		})

		return nil
	})
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	return pay, inv, nil
}

// classify infers the ledger role of a payment the caller did not label:
// the first payment is a deposit unless it settles everything at once, and
// the payment that reaches the total is the final one.
func classify(paidSoFar, amount, total int64) domain.PaymentType {
	switch {
	case paidSoFar == 0 && amount >= total:
		return domain.PaymentFull
	case paidSoFar == 0:
		return domain.PaymentDeposit
	case paidSoFar+amount >= total:
		return domain.PaymentFinal
	default:
		return domain.PaymentPartial
	}
}

// Summary is the payment-side view of one booking.
type Summary struct {
	Booking          domain.Booking
	Invoice          domain.Invoice
	Payments         []domain.Payment
	RemainingCents   int64
	DepositSatisfied bool
}

func (s *Service) Summarize(ctx context.Context, bookingID uuid.UUID) (Summary, error) {
	const op = "service.payment.Summarize"

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Summary{}, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return Summary{}, fmt.Errorf("%s:%w", op, err)
	}

	inv, err := s.store.Payments().GetInvoice(ctx, bookingID)
	if err != nil {
		return Summary{}, fmt.Errorf("%s:%w", op, err)
	}

	payments, err := s.store.Payments().ListByBooking(ctx, bookingID)
	if err != nil {
		return Summary{}, fmt.Errorf("%s:%w", op, err)
	}

	return Summary{
		Booking:          b,
		Invoice:          inv,
		Payments:         payments,
		RemainingCents:   b.TotalPriceCents - inv.TotalPaidCents,
		DepositSatisfied: inv.TotalPaidCents >= b.DepositRequiredCents,
	}, nil
}

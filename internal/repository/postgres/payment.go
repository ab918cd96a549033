package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staymarket/staycore/internal/domain"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PaymentRepo) With(db DB) *PaymentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert appends one payment to the ledger. Payments are never updated or
// deleted; corrections are new rows.
func (r *PaymentRepo) Insert(ctx context.Context, p *domain.Payment) error {
	const op = "postgres.PaymentRepo.Insert"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO payments
		   (id, booking_id, amount_cents, method, type, is_manual, reference, confirmed_by, confirmed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		p.ID, p.BookingID, p.AmountCents, p.Method, p.Type,
		p.IsManual, p.Reference, p.ConfirmedBy, p.ConfirmedAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// SumPaid returns the ledger total for a booking. Must run inside the same
// transaction as the insert when used to enforce the overpayment guard.
func (r *PaymentRepo) SumPaid(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	const op = "postgres.PaymentRepo.SumPaid"

	var total int64
	err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(sum(amount_cents), 0) FROM payments WHERE booking_id = $1`,
		bookingID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return total, nil
}

func (r *PaymentRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Payment, error) {
	const op = "postgres.PaymentRepo.ListByBooking"

	rows, err := r.handle().Query(ctx,
		`SELECT id, booking_id, amount_cents, method, type, is_manual,
		        reference, confirmed_by, confirmed_at, created_at
		 FROM payments
		 WHERE booking_id = $1
		 ORDER BY created_at`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.BookingID, &p.AmountCents, &p.Method, &p.Type, &p.IsManual,
			&p.Reference, &p.ConfirmedBy, &p.ConfirmedAt, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *PaymentRepo) GetInvoice(ctx context.Context, bookingID uuid.UUID) (domain.Invoice, error) {
	const op = "postgres.PaymentRepo.GetInvoice"

	var inv domain.Invoice
	err := r.handle().QueryRow(ctx,
		`SELECT id, booking_id, total_amount_cents, total_paid_cents, status,
		        due_date, created_at, updated_at
		 FROM invoices
		 WHERE booking_id = $1`,
		bookingID,
	).Scan(&inv.ID, &inv.BookingID, &inv.TotalAmountCents, &inv.TotalPaidCents,
		&inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return inv, nil
}

// RefreshInvoice overwrites the invoice's derived fields after the ledger
// changed. The invoice row is a projection of the payments table, never the
// source of truth.
func (r *PaymentRepo) RefreshInvoice(
	ctx context.Context,
	bookingID uuid.UUID,
	totalPaid int64,
	status domain.InvoiceStatus,
) error {
	const op = "postgres.PaymentRepo.RefreshInvoice"

	_, err := r.handle().Exec(ctx,
		`UPDATE invoices
		 SET total_paid_cents = $2, status = $3, updated_at = now()
		 WHERE booking_id = $1`,
		bookingID, totalPaid, status,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

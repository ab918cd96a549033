package domain

import (
	"time"

	"github.com/google/uuid"
)

type UnitKind string

const (
	KindRoomType   UnitKind = "room_type"
	KindEventSpace UnitKind = "event_space"
)

// InventoryUnit is a bookable type: a hotel room-type with N physical rooms,
// or an event space (always a single unit). Units are deactivated, never
// hard-deleted.
type InventoryUnit struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	Name                string
	Kind                UnitKind
	TotalUnits          int
	BasePriceCents      int64
	MinStayNights       int
	WeekendSurchargePct int
	RequiresApproval    bool
	IsActive            bool
	CreatedAt           time.Time
}

// AvailabilityDay is the per-(unit, date) capacity row. PriceOverrideCents nil
// means "inherit base/season pricing"; an explicit 0 means free.
// 0 <= AvailableUnits <= TotalUnits holds for every row at all times.
type AvailabilityDay struct {
	UnitID             uuid.UUID
	Date               time.Time
	TotalUnits         int
	AvailableUnits     int
	PriceOverrideCents *int64
	StopSell           bool
	MinStay            int
}

type SeasonKind string

const (
	SeasonPercent SeasonKind = "percent"
	SeasonFixed   SeasonKind = "fixed"
)

// Season is a date-range-bound price modifier attached to one unit or to a
// whole owner (UnitID nil). Value is signed: percent points for percent kind,
// cents for fixed kind, negative for discounts.
type Season struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	UnitID    *uuid.UUID
	Name      string
	Kind      SeasonKind
	Value     int64
	StartsOn  time.Time // inclusive
	EndsOn    time.Time // inclusive
	Priority  int
	IsActive  bool
	CreatedAt time.Time
}

// Covers reports whether the season is in effect on the given date.
func (s Season) Covers(date time.Time) bool {
	return !date.Before(s.StartsOn) && !date.After(s.EndsOn)
}

// SpanDays is the inclusive length of the season's range, used as the
// specificity tie-break when two seasons overlap.
func (s Season) SpanDays() int {
	return int(s.EndsOn.Sub(s.StartsOn)/(24*time.Hour)) + 1
}

// OwnerPolicy carries the per-owner deposit rule and long-stay discount tiers.
type OwnerPolicy struct {
	OwnerID         uuid.UUID
	DepositPercent  int
	DepositMinCents int64
	Tier7Pct        int
	Tier14Pct       int
	Tier30Pct       int
}

// LongStayPct returns the discount percent for a stay of the given length.
func (p OwnerPolicy) LongStayPct(nights int) int {
	switch {
	case nights >= 30 && p.Tier30Pct > 0:
		return p.Tier30Pct
	case nights >= 14 && p.Tier14Pct > 0:
		return p.Tier14Pct
	case nights >= 7 && p.Tier7Pct > 0:
		return p.Tier7Pct
	default:
		return 0
	}
}

// RequiredDeposit is the minimum payment before a booking may be confirmed:
// the larger of the policy percentage of the total and the fixed minimum.
func (p OwnerPolicy) RequiredDeposit(totalCents int64) int64 {
	pct := totalCents * int64(p.DepositPercent) / 100
	if pct > p.DepositMinCents {
		return pct
	}
	return p.DepositMinCents
}

type Booking struct {
	ID                   uuid.UUID
	UnitID               uuid.UUID
	GuestName            string
	GuestEmail           string
	Start                time.Time // first night, inclusive
	End                  time.Time // check-out day, exclusive
	Units                int
	Nights               int
	TotalPriceCents      int64
	DepositRequiredCents int64
	Status               BookingStatus
	PaymentDeadline      time.Time
	CancelReason         string
	CancelActor          string
	ConfirmedAt          *time.Time
	CheckedInAt          *time.Time
	CheckedOutAt         *time.Time
	CancelledAt          *time.Time
	CreatedAt            time.Time
}

// BookingAllocation records how many units of one availability day a booking
// consumed, so cancellation can restore the exact amount per date.
type BookingAllocation struct {
	BookingID  uuid.UUID
	UnitID     uuid.UUID
	Date       time.Time
	Units      int
	Released   bool
	ReleasedAt *time.Time
}

type PaymentType string

const (
	PaymentDeposit PaymentType = "deposit"
	PaymentPartial PaymentType = "partial"
	PaymentFinal   PaymentType = "final"
	PaymentFull    PaymentType = "full"
)

// Payment is an append-only ledger entry; rows are never mutated.
type Payment struct {
	ID          uuid.UUID
	BookingID   uuid.UUID
	AmountCents int64
	Method      string
	Type        PaymentType
	IsManual    bool
	Reference   string
	ConfirmedBy string
	ConfirmedAt time.Time
	CreatedAt   time.Time
}

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Invoice is a derived aggregate over a booking's payment ledger. It is
// recomputed on every registered payment, never authoritative on its own.
type Invoice struct {
	ID               uuid.UUID
	BookingID        uuid.UUID
	TotalAmountCents int64
	TotalPaidCents   int64
	Status           InvoiceStatus
	DueDate          time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DeriveInvoiceStatus recomputes an invoice status from the ledger sum:
// paid once the full amount is covered, partial as soon as anything is paid,
// overdue when an unpaid balance remains past the due date.
func DeriveInvoiceStatus(totalPaid, totalAmount int64, dueDate, now time.Time) InvoiceStatus {
	if totalAmount > 0 && totalPaid >= totalAmount {
		return InvoicePaid
	}
	if !dueDate.IsZero() && now.After(dueDate) {
		return InvoiceOverdue
	}
	if totalPaid > 0 {
		return InvoicePartial
	}
	return InvoicePending
}

// BookingEvent is one append-only audit row for a booking.
type BookingEvent struct {
	ID        int64
	BookingID uuid.UUID
	Action    string
	Actor     string
	Note      string
	CreatedAt time.Time
}

// OccupancySummary aggregates a unit's committed capacity over a range.
type OccupancySummary struct {
	UnitID         uuid.UUID
	TotalUnits     int
	BookedUnits    int64
	ActiveBookings int64
}

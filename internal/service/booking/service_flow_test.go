package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/repository"
)

func testUnit(total int) domain.InventoryUnit {
	return domain.InventoryUnit{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		Name:           "Sea View Double",
		Kind:           domain.KindRoomType,
		TotalUnits:     total,
		BasePriceCents: 10000,
		MinStayNights:  1,
		IsActive:       true,
	}
}

func futureStay(nights int) (start, end time.Time) {
	start = domain.DateOnly(time.Now()).AddDate(0, 0, 30)
	return start, start.AddDate(0, 0, nights)
}

func TestCreate_DecrementsEveryNight(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(3)
	db.addUnit(unit)

	start, end := futureStay(3)
	db.seedAvailability(unit.ID, start, end, unit.TotalUnits)

	svc := newTestService(db, Config{})

	b, err := svc.Create(context.Background(), CreateInput{
		UnitID:     unit.ID,
		GuestName:  "Ada",
		GuestEmail: "ada@example.com",
		Start:      start,
		End:        end,
		Units:      2,
	}, "")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, b.Status)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, int64(60000), b.TotalPriceCents)

	for _, d := range domain.DatesIn(start, end) {
		assert.Equal(t, 1, db.availableOn(unit.ID, d))
	}

	assert.Len(t, db.allocs, 3)
	for _, al := range db.allocs {
		assert.Equal(t, b.ID, al.bookingID)
		assert.Equal(t, 2, al.units)
		assert.False(t, al.released)
	}

	assert.Equal(t, 1, db.invoices)
	assert.Len(t, db.events, 1)
	assert.Equal(t, "created", db.events[0].action)
}

func TestCreate_OverlappingStayFailsWithoutPartialHold(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(3)
	db.addUnit(unit)

	start, end := futureStay(3)
	db.seedAvailability(unit.ID, start, end, unit.TotalUnits)

	svc := newTestService(db, Config{})

	_, err := svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ada", GuestEmail: "ada@example.com",
		Start: start, End: end, Units: 2,
	}, "")
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ben", GuestEmail: "ben@example.com",
		Start: start, End: end, Units: 2,
	}, "")

	var ue UnavailableError
	assert.ErrorAs(t, err, &ue)

	// The losing attempt left nothing behind: one booking, one invoice,
	// and every night still holds exactly the winner's decrement.
	assert.Len(t, db.bookings, 1)
	assert.Equal(t, 1, db.invoices)
	for _, d := range domain.DatesIn(start, end) {
		assert.Equal(t, 1, db.availableOn(unit.ID, d))
	}
}

func TestCreate_UninitializedNightRejected(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(2)
	db.addUnit(unit)

	start, end := futureStay(3)
	// Only the first two nights have rows.
	db.seedAvailability(unit.ID, start, start.AddDate(0, 0, 2), unit.TotalUnits)

	svc := newTestService(db, Config{})

	_, err := svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ada", GuestEmail: "ada@example.com",
		Start: start, End: end, Units: 1,
	}, "")

	var nie NotInitializedError
	assert.ErrorAs(t, err, &nie)
	assert.ErrorIs(t, err, repository.ErrNotInitialized)
	assert.Empty(t, db.bookings)
}

func TestCancel_RestoresExactlyOnce(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(3)
	db.addUnit(unit)

	start, end := futureStay(3)
	db.seedAvailability(unit.ID, start, end, unit.TotalUnits)

	svc := newTestService(db, Config{})

	b, err := svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ada", GuestEmail: "ada@example.com",
		Start: start, End: end, Units: 2,
	}, "")
	assert.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), b.ID, "guest", "change of plans")
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "change of plans", cancelled.CancelReason)
	assert.Equal(t, "guest", cancelled.CancelActor)

	for _, d := range domain.DatesIn(start, end) {
		assert.Equal(t, 3, db.availableOn(unit.ID, d))
	}
	for _, al := range db.allocs {
		assert.True(t, al.released)
	}

	// A second cancel is refused and must not restore again.
	_, err = svc.Cancel(context.Background(), b.ID, "guest", "again")
	var ite IllegalTransitionError
	assert.ErrorAs(t, err, &ite)
	for _, d := range domain.DatesIn(start, end) {
		assert.Equal(t, 3, db.availableOn(unit.ID, d))
	}
}

func TestConfirm_DepositGate(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(2)
	db.addUnit(unit)

	start, end := futureStay(3)
	db.seedAvailability(unit.ID, start, end, unit.TotalUnits)

	svc := newTestService(db, Config{
		DefaultPolicy: domain.OwnerPolicy{DepositPercent: 20},
	})

	b, err := svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ada", GuestEmail: "ada@example.com",
		Start: start, End: end, Units: 1,
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(6000), b.DepositRequiredCents)

	_, err = svc.Confirm(context.Background(), b.ID, "provider")
	assert.ErrorIs(t, err, ErrDepositNotMet)

	db.paid[b.ID] = b.DepositRequiredCents

	confirmed, err := svc.Confirm(context.Background(), b.ID, "provider")
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
}

func TestCancelExpired_CancelsOverdue(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(2)
	db.addUnit(unit)

	start, end := futureStay(2)
	db.seedAvailability(unit.ID, start, end, unit.TotalUnits)

	// A deadline this short is already past by the time the sweep runs.
	svc := newTestService(db, Config{PaymentDeadline: time.Nanosecond})

	b, err := svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ada", GuestEmail: "ada@example.com",
		Start: start, End: end, Units: 1,
	}, "")
	assert.NoError(t, err)

	n, err := svc.CancelExpired(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, domain.StatusCancelled, db.bookings[b.ID].Status)
	assert.Equal(t, "system", db.bookings[b.ID].CancelActor)
	for _, d := range domain.DatesIn(start, end) {
		assert.Equal(t, 2, db.availableOn(unit.ID, d))
	}
}

func TestCancelExpired_LeavesConcurrentlyConfirmedAlone(t *testing.T) {
	db := newFakeDB()
	unit := testUnit(2)
	db.addUnit(unit)

	start, end := futureStay(2)
	db.seedAvailability(unit.ID, start, end, unit.TotalUnits)

	svc := newTestService(db, Config{PaymentDeadline: time.Nanosecond})

	b, err := svc.Create(context.Background(), CreateInput{
		UnitID: unit.ID, GuestName: "Ada", GuestEmail: "ada@example.com",
		Start: start, End: end, Units: 1,
	}, "")
	assert.NoError(t, err)

	// The sweep's listing snapshot still shows pending_payment, but the
	// guest paid and the provider confirmed before the sweep reached the
	// row. The guarded update must leave the confirmed booking untouched.
	db.staleExpired = []domain.Booking{*db.bookings[b.ID]}
	db.bookings[b.ID].Status = domain.StatusConfirmed

	n, err := svc.CancelExpired(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, domain.StatusConfirmed, db.bookings[b.ID].Status)
	for _, d := range domain.DatesIn(start, end) {
		assert.Equal(t, 1, db.availableOn(unit.ID, d), "confirmed booking must keep its nights")
	}
	for _, al := range db.allocs {
		assert.False(t, al.released)
	}
}

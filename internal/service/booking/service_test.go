package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/staymarket/staycore/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func stayDays(unit domain.InventoryUnit, start, end time.Time, available int) []domain.AvailabilityDay {
	var out []domain.AvailabilityDay
	for _, d := range domain.DatesIn(start, end) {
		out = append(out, domain.AvailabilityDay{
			UnitID:         unit.ID,
			Date:           d,
			TotalUnits:     unit.TotalUnits,
			AvailableUnits: available,
		})
	}
	return out
}

func TestCheckStay_OK(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	err := checkStay(unit, stayDays(unit, start, end, 3), start, end, 2, 3)

	assert.NoError(t, err)
}

func TestCheckStay_NotInitialized(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	days := stayDays(unit, start, end, 3)[:2] // last night missing

	err := checkStay(unit, days, start, end, 1, 3)

	var nie NotInitializedError
	assert.ErrorAs(t, err, &nie)
	assert.Equal(t, date(2026, 4, 3), nie.Date)
	assert.Equal(t, unit.ID, nie.UnitID)
}

func TestCheckStay_StopSell(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	days := stayDays(unit, start, end, 3)
	days[1].StopSell = true

	err := checkStay(unit, days, start, end, 1, 3)

	var ue UnavailableError
	assert.ErrorAs(t, err, &ue)
	assert.True(t, ue.StopSell)
	assert.Equal(t, date(2026, 4, 2), ue.Date)
}

func TestCheckStay_InsufficientUnits(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	days := stayDays(unit, start, end, 3)
	days[2].AvailableUnits = 1

	err := checkStay(unit, days, start, end, 2, 3)

	var ue UnavailableError
	assert.ErrorAs(t, err, &ue)
	assert.False(t, ue.StopSell)
	assert.Equal(t, date(2026, 4, 3), ue.Date)
}

func TestCheckStay_MinStayIsMaxAcrossRange(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5, MinStayNights: 2}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	days := stayDays(unit, start, end, 3)
	days[1].MinStay = 5 // one strict night dominates the whole range

	err := checkStay(unit, days, start, end, 1, 3)

	var mse MinStayError
	assert.ErrorAs(t, err, &mse)
	assert.Equal(t, 5, mse.Required)
	assert.Equal(t, 3, mse.Nights)
}

func TestCheckStay_UnitMinStayIsFloor(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5, MinStayNights: 4}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	err := checkStay(unit, stayDays(unit, start, end, 3), start, end, 1, 3)

	var mse MinStayError
	assert.ErrorAs(t, err, &mse)
	assert.Equal(t, 4, mse.Required)
}

func TestFirstBlockedNight(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5}
	start, end := date(2026, 4, 1), date(2026, 4, 4)

	days := stayDays(unit, start, end, 4)
	days[1].AvailableUnits = 0

	got := firstBlockedNight(days, 2)

	assert.Equal(t, date(2026, 4, 2), got.Date)
	assert.False(t, got.StopSell)
}

func TestFirstBlockedNight_FallsBackToFirstDay(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), TotalUnits: 5}
	start, end := date(2026, 4, 1), date(2026, 4, 3)

	// Another transaction won the race; the snapshot looks fine.
	got := firstBlockedNight(stayDays(unit, start, end, 4), 2)

	assert.Equal(t, date(2026, 4, 1), got.Date)
}

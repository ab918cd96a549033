package pricing

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

func days(unitID uuid.UUID, start, end time.Time) []domain.AvailabilityDay {
	var out []domain.AvailabilityDay
	for _, d := range domain.DatesIn(start, end) {
		out = append(out, domain.AvailabilityDay{UnitID: unitID, Date: d})
	}
	return out
}

func TestCalculate_WeekendSurcharge(t *testing.T) {
	unit := domain.InventoryUnit{
		ID:                  uuid.New(),
		BasePriceCents:      100000, // 1000.00 per night
		WeekendSurchargePct: 20,
	}
	// Friday 2026-03-06 (weekday rate) + Saturday 2026-03-07 (surcharged).
	start, end := date(2026, 3, 6), date(2026, 3, 8)

	q, err := Calculate(Input{
		Unit:  unit,
		Days:  days(unit.ID, start, end),
		Start: start,
		End:   end,
		Units: 1,
	})

	assert.NoError(t, err)
	assert.Len(t, q.Nights, 2)
	assert.Equal(t, int64(100000), q.Nights[0].PriceCents)
	assert.False(t, q.Nights[0].Weekend)
	assert.Equal(t, int64(120000), q.Nights[1].PriceCents)
	assert.True(t, q.Nights[1].Weekend)
	assert.Equal(t, int64(220000), q.TotalCents)
}

func TestCalculate_PriceOverride(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}
	start, end := date(2026, 3, 2), date(2026, 3, 4)

	d := days(unit.ID, start, end)
	override := int64(50000)
	d[1].PriceOverrideCents = &override

	q, err := Calculate(Input{Unit: unit, Days: d, Start: start, End: end, Units: 1})

	assert.NoError(t, err)
	assert.Equal(t, int64(150000), q.TotalCents)
}

func TestCalculate_ZeroOverrideMeansFree(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}
	start, end := date(2026, 3, 2), date(2026, 3, 3)

	d := days(unit.ID, start, end)
	free := int64(0)
	d[0].PriceOverrideCents = &free

	q, err := Calculate(Input{Unit: unit, Days: d, Start: start, End: end, Units: 1})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), q.TotalCents)
}

func TestCalculate_SeasonPercentAndFixed(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}
	start, end := date(2026, 7, 6), date(2026, 7, 8)

	seasons := []domain.Season{
		{
			ID: uuid.New(), Name: "summer", Kind: domain.SeasonPercent, Value: 25,
			StartsOn: date(2026, 7, 6), EndsOn: date(2026, 7, 6), IsActive: true,
		},
		{
			ID: uuid.New(), Name: "festival", Kind: domain.SeasonFixed, Value: 30000,
			StartsOn: date(2026, 7, 7), EndsOn: date(2026, 7, 7), IsActive: true,
		},
	}

	q, err := Calculate(Input{
		Unit: unit, Days: days(unit.ID, start, end), Seasons: seasons,
		Start: start, End: end, Units: 1,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(125000), q.Nights[0].PriceCents)
	assert.Equal(t, int64(130000), q.Nights[1].PriceCents)
	assert.NotNil(t, q.Nights[0].SeasonID)
	assert.Equal(t, seasons[0].ID, *q.Nights[0].SeasonID)
}

func TestCalculate_NegativeSeasonClampsAtZero(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 10000}
	start, end := date(2026, 7, 6), date(2026, 7, 7)

	seasons := []domain.Season{{
		ID: uuid.New(), Kind: domain.SeasonFixed, Value: -50000,
		StartsOn: start, EndsOn: start, IsActive: true,
	}}

	q, err := Calculate(Input{
		Unit: unit, Days: days(unit.ID, start, end), Seasons: seasons,
		Start: start, End: end, Units: 1,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), q.Nights[0].PriceCents)
	assert.Equal(t, int64(0), q.TotalCents)
}

func TestCalculate_SeasonTieBreaks(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}
	night := date(2026, 8, 15)
	created := date(2026, 1, 1)

	wide := domain.Season{
		ID: uuid.New(), Kind: domain.SeasonPercent, Value: 10, Priority: 1,
		StartsOn: date(2026, 6, 1), EndsOn: date(2026, 9, 30),
		IsActive: true, CreatedAt: created,
	}
	narrow := domain.Season{
		ID: uuid.New(), Kind: domain.SeasonPercent, Value: 50, Priority: 1,
		StartsOn: date(2026, 8, 14), EndsOn: date(2026, 8, 16),
		IsActive: true, CreatedAt: created,
	}
	highPriority := domain.Season{
		ID: uuid.New(), Kind: domain.SeasonPercent, Value: 20, Priority: 5,
		StartsOn: date(2026, 6, 1), EndsOn: date(2026, 9, 30),
		IsActive: true, CreatedAt: created,
	}

	t.Run("higher priority wins over narrower span", func(t *testing.T) {
		got := pickSeason([]domain.Season{wide, narrow, highPriority}, unit.ID, night)
		assert.Equal(t, highPriority.ID, got.ID)
	})

	t.Run("narrower span wins at equal priority", func(t *testing.T) {
		got := pickSeason([]domain.Season{wide, narrow}, unit.ID, night)
		assert.Equal(t, narrow.ID, got.ID)
	})

	t.Run("newest wins at equal priority and span", func(t *testing.T) {
		newer := wide
		newer.ID = uuid.New()
		newer.CreatedAt = created.Add(time.Hour)
		got := pickSeason([]domain.Season{wide, newer}, unit.ID, night)
		assert.Equal(t, newer.ID, got.ID)
	})

	t.Run("inactive seasons never apply", func(t *testing.T) {
		off := highPriority
		off.IsActive = false
		got := pickSeason([]domain.Season{off}, unit.ID, night)
		assert.Nil(t, got)
	})

	t.Run("other unit's season is ignored", func(t *testing.T) {
		otherUnit := uuid.New()
		scoped := narrow
		scoped.UnitID = &otherUnit
		got := pickSeason([]domain.Season{scoped}, unit.ID, night)
		assert.Nil(t, got)
	})
}

func TestCalculate_LongStayDiscount(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 10000}
	policy := domain.OwnerPolicy{Tier7Pct: 5, Tier14Pct: 10, Tier30Pct: 20}
	start := date(2026, 3, 2) // Monday, so a 7-night window has 2 weekend nights
	end := start.AddDate(0, 0, 7)

	q, err := Calculate(Input{
		Unit: unit, Days: days(unit.ID, start, end), Policy: policy,
		Start: start, End: end, Units: 1,
	})

	assert.NoError(t, err)
	assert.Equal(t, 5, q.LongStayPct)
	assert.Equal(t, int64(70000), q.SubtotalCents)
	assert.Equal(t, int64(3500), q.DiscountCents)
	assert.Equal(t, int64(66500), q.TotalCents)
}

func TestCalculate_MultipleUnits(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 10000}
	start, end := date(2026, 3, 2), date(2026, 3, 4)

	q, err := Calculate(Input{
		Unit: unit, Days: days(unit.ID, start, end),
		Start: start, End: end, Units: 3,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(60000), q.TotalCents)
}

func TestCalculate_DepositFromPolicy(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}
	policy := domain.OwnerPolicy{DepositPercent: 30, DepositMinCents: 5000}
	start, end := date(2026, 3, 2), date(2026, 3, 3)

	q, err := Calculate(Input{
		Unit: unit, Days: days(unit.ID, start, end), Policy: policy,
		Start: start, End: end, Units: 1,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(30000), q.DepositRequiredCents)
}

func TestCalculate_MissingAvailabilityRow(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}
	start, end := date(2026, 3, 2), date(2026, 3, 5)

	d := days(unit.ID, start, end)

	_, err := Calculate(Input{Unit: unit, Days: d[:2], Start: start, End: end, Units: 1})

	assert.ErrorIs(t, err, ErrMissingDay)
}

func TestCalculate_InvalidInput(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 100000}

	_, err := Calculate(Input{Unit: unit, Start: date(2026, 3, 2), End: date(2026, 3, 2), Units: 1})
	assert.ErrorIs(t, err, ErrEmptyRange)

	_, err = Calculate(Input{Unit: unit, Start: date(2026, 3, 2), End: date(2026, 3, 3), Units: 0})
	assert.ErrorIs(t, err, ErrNoUnits)
}

func TestCalculate_Deterministic(t *testing.T) {
	unit := domain.InventoryUnit{ID: uuid.New(), BasePriceCents: 123457, WeekendSurchargePct: 17}
	policy := domain.OwnerPolicy{Tier7Pct: 7, DepositPercent: 15}
	start := date(2026, 3, 2)
	end := start.AddDate(0, 0, 9)
	seasons := []domain.Season{{
		ID: uuid.New(), Kind: domain.SeasonPercent, Value: 13,
		StartsOn: start, EndsOn: end, IsActive: true,
	}}

	in := Input{
		Unit: unit, Days: days(unit.ID, start, end), Seasons: seasons,
		Policy: policy, Start: start, End: end, Units: 2,
	}

	first, err := Calculate(in)
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Calculate(in)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

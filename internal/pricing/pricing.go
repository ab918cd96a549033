// Package pricing computes booking quotes. It is deliberately pure: no
// storage, no clocks, no I/O. Callers load the unit, its availability rows,
// active seasons and the owner policy, and get back a deterministic quote.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
)

// Input carries everything a quote depends on. Days must cover every night
// of [Start, End); missing rows fail the calculation rather than silently
// falling back to the base price.
type Input struct {
	Unit    domain.InventoryUnit
	Days    []domain.AvailabilityDay
	Seasons []domain.Season
	Policy  domain.OwnerPolicy
	Start   time.Time
	End     time.Time
	Units   int
}

// Night is the priced breakdown of a single night for a single unit.
type Night struct {
	Date       time.Time
	BaseCents  int64
	PriceCents int64
	Weekend    bool
	SeasonID   *uuid.UUID
}

// Quote is the full price breakdown for a stay.
type Quote struct {
	Nights               []Night
	Units                int
	SubtotalCents        int64
	LongStayPct          int
	DiscountCents        int64
	TotalCents           int64
	DepositRequiredCents int64
}

// Calculate prices a stay of [Start, End) for Units units. The same input
// always yields the same quote.
func Calculate(in Input) (Quote, error) {
	const op = "pricing.Calculate"

	nights := domain.Nights(in.Start, in.End)
	if nights <= 0 {
		return Quote{}, fmt.Errorf("%s: %w", op, ErrEmptyRange)
	}
	if in.Units <= 0 {
		return Quote{}, fmt.Errorf("%s: %w", op, ErrNoUnits)
	}

	byDate := make(map[time.Time]domain.AvailabilityDay, len(in.Days))
	for _, d := range in.Days {
		byDate[domain.DateOnly(d.Date)] = d
	}

	q := Quote{Units: in.Units}
	var subtotal int64
	for _, date := range domain.DatesIn(in.Start, in.End) {
		row, ok := byDate[date]
		if !ok {
			return Quote{}, fmt.Errorf("%s: %s: %w", op, date.Format(time.DateOnly), ErrMissingDay)
		}

		base := in.Unit.BasePriceCents
		if row.PriceOverrideCents != nil {
			base = *row.PriceOverrideCents
		}

		price := float64(base)
		night := Night{Date: date, BaseCents: base}

		if domain.IsWeekend(date) && in.Unit.WeekendSurchargePct > 0 {
			price *= 1 + float64(in.Unit.WeekendSurchargePct)/100
			night.Weekend = true
		}

		if season := pickSeason(in.Seasons, in.Unit.ID, date); season != nil {
			switch season.Kind {
			case domain.SeasonPercent:
				price *= 1 + float64(season.Value)/100
			case domain.SeasonFixed:
				price += float64(season.Value)
			}
			id := season.ID
			night.SeasonID = &id
		}

		night.PriceCents = roundCents(price)
		if night.PriceCents < 0 {
			night.PriceCents = 0
		}

		q.Nights = append(q.Nights, night)
		subtotal += night.PriceCents * int64(in.Units)
	}

	q.SubtotalCents = subtotal
	q.LongStayPct = in.Policy.LongStayPct(nights)
	if q.LongStayPct > 0 {
		q.DiscountCents = roundCents(float64(subtotal) * float64(q.LongStayPct) / 100)
	}

	q.TotalCents = subtotal - q.DiscountCents
	if q.TotalCents < 0 {
		q.TotalCents = 0
	}
	q.DepositRequiredCents = in.Policy.RequiredDeposit(q.TotalCents)

	return q, nil
}

// pickSeason selects the season in effect on a date: highest priority wins,
// then the narrowest date span, then the most recently created. Unit-scoped
// seasons and owner-wide seasons compete on equal terms.
func pickSeason(seasons []domain.Season, unitID uuid.UUID, date time.Time) *domain.Season {
	var best *domain.Season
	for i := range seasons {
		s := &seasons[i]
		if !s.IsActive || !s.Covers(date) {
			continue
		}
		if s.UnitID != nil && *s.UnitID != unitID {
			continue
		}
		if best == nil || beats(s, best) {
			best = s
		}
	}
	return best
}

func beats(a, b *domain.Season) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.SpanDays() != b.SpanDays() {
		return a.SpanDays() < b.SpanDays()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

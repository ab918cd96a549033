// Package worker holds the background loops: the availability horizon
// maintainer and the expired-booking sweep.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/metrics"
)

type HorizonConfig struct {
	Interval     time.Duration
	HorizonDays  int
	CeilingYears int
}

// Horizon keeps every active unit's availability seeded through the rolling
// horizon. Each run walks all units; a unit that fails is logged and skipped
// so one broken unit cannot stall the rest.
type Horizon struct {
	avail availabilitySeeder
	units unitSource
	cfg   HorizonConfig
	log   *slog.Logger
}

// availabilitySeeder seeds missing availability rows for a date range.
// Satisfied by the availability repo, whose INSERT ignores dates that already
// have a row, so re-seeding an interval that admin initialization partially
// covered is safe and fills only the gaps.
type availabilitySeeder interface {
	InitializeRange(ctx context.Context, unitID uuid.UUID, start, end time.Time, totalUnits int, priceOverride *int64, minStay int) (int64, error)
}

// unitSource lists the units to maintain. Satisfied by the inventory repo.
type unitSource interface {
	ListActiveUnits(ctx context.Context) ([]domain.InventoryUnit, error)
}

func NewHorizon(avail availabilitySeeder, units unitSource, cfg HorizonConfig, log *slog.Logger) *Horizon {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 730
	}
	if cfg.CeilingYears <= 0 {
		cfg.CeilingYears = 10
	}

	return &Horizon{avail: avail, units: units, cfg: cfg, log: log}
}

// Run executes one pass immediately and then on every tick until the
// context is cancelled.
func (h *Horizon) Run(ctx context.Context) error {
	h.runOnce(ctx)

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.runOnce(ctx)
		}
	}
}

func (h *Horizon) runOnce(ctx context.Context) {
	units, err := h.units.ListActiveUnits(ctx)
	if err != nil {
		h.log.Error("horizon: listing units failed", slog.String("error", err.Error()))
		return
	}

	today := domain.DateOnly(time.Now())

	var seeded int64
	for _, u := range units {
		n, err := h.extendUnit(ctx, u, today)
		if err != nil {
			metrics.HorizonUnitFailures.Inc()
			h.log.Warn("horizon: unit skipped",
				slog.String("unit_id", u.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		seeded += n
	}

	if seeded > 0 {
		metrics.HorizonRowsSeeded.Add(float64(seeded))
	}

	h.log.Info("horizon pass finished",
		slog.Int("units", len(units)),
		slog.Int64("rows_seeded", seeded))
}

// extendUnit re-seeds the whole [today, horizon) span for one unit. Seeding
// always starts at today rather than after the unit's last seeded date: a
// manually initialized far-future island would otherwise push the resume
// point past the horizon and leave the near-term nights without rows. Dates
// already present are skipped by the insert, so the common case writes
// nothing beyond the few nights that rolled into view.
func (h *Horizon) extendUnit(ctx context.Context, u domain.InventoryUnit, today time.Time) (int64, error) {
	end := horizonEnd(today, h.cfg.HorizonDays, h.cfg.CeilingYears)
	if !end.After(today) {
		return 0, nil
	}

	return h.avail.InitializeRange(ctx, u.ID, today, end, u.TotalUnits, nil, 0)
}

// horizonEnd is the exclusive end of the maintained span: today plus the
// horizon, capped by the hard ceiling.
func horizonEnd(today time.Time, horizonDays, ceilingYears int) time.Time {
	end := today.AddDate(0, 0, horizonDays)

	if ceiling := today.AddDate(ceilingYears, 0, 0); end.After(ceiling) {
		end = ceiling
	}

	return end
}

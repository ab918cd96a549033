package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeasonCovers(t *testing.T) {
	s := Season{StartsOn: date(2026, 7, 1), EndsOn: date(2026, 8, 31)}

	assert.False(t, s.Covers(date(2026, 6, 30)))
	assert.True(t, s.Covers(date(2026, 7, 1)))
	assert.True(t, s.Covers(date(2026, 8, 15)))
	assert.True(t, s.Covers(date(2026, 8, 31)))
	assert.False(t, s.Covers(date(2026, 9, 1)))
}

func TestSeasonSpanDays(t *testing.T) {
	assert.Equal(t, 1, Season{StartsOn: date(2026, 7, 1), EndsOn: date(2026, 7, 1)}.SpanDays())
	assert.Equal(t, 62, Season{StartsOn: date(2026, 7, 1), EndsOn: date(2026, 8, 31)}.SpanDays())
}

func TestLongStayPct(t *testing.T) {
	p := OwnerPolicy{Tier7Pct: 5, Tier14Pct: 10, Tier30Pct: 20}

	assert.Equal(t, 0, p.LongStayPct(6))
	assert.Equal(t, 5, p.LongStayPct(7))
	assert.Equal(t, 5, p.LongStayPct(13))
	assert.Equal(t, 10, p.LongStayPct(14))
	assert.Equal(t, 10, p.LongStayPct(29))
	assert.Equal(t, 20, p.LongStayPct(30))
	assert.Equal(t, 20, p.LongStayPct(365))
}

func TestLongStayPct_SkipsEmptyTiers(t *testing.T) {
	// An owner with only a 7-night tier still discounts month-long stays.
	p := OwnerPolicy{Tier7Pct: 5}

	assert.Equal(t, 5, p.LongStayPct(30))
	assert.Equal(t, 5, p.LongStayPct(14))
	assert.Equal(t, 0, p.LongStayPct(3))
}

func TestRequiredDeposit(t *testing.T) {
	p := OwnerPolicy{DepositPercent: 20, DepositMinCents: 5000}

	assert.Equal(t, int64(20000), p.RequiredDeposit(100000))
	// Percent falls below the floor on cheap bookings.
	assert.Equal(t, int64(5000), p.RequiredDeposit(10000))
	assert.Equal(t, int64(5000), p.RequiredDeposit(0))
}

func TestDeriveInvoiceStatus(t *testing.T) {
	due := date(2026, 5, 1)
	before := due.Add(-time.Hour)
	after := due.Add(time.Hour)

	tests := []struct {
		name        string
		paid, total int64
		now         time.Time
		want        InvoiceStatus
	}{
		{"nothing paid", 0, 10000, before, InvoicePending},
		{"partial payment", 2500, 10000, before, InvoicePartial},
		{"fully paid", 10000, 10000, before, InvoicePaid},
		{"overpaid still paid", 12000, 10000, before, InvoicePaid},
		{"unpaid past due", 0, 10000, after, InvoiceOverdue},
		{"partial past due", 2500, 10000, after, InvoiceOverdue},
		{"paid never goes overdue", 10000, 10000, after, InvoicePaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveInvoiceStatus(tt.paid, tt.total, due, tt.now))
		})
	}
}

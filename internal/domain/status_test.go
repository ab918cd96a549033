package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to BookingStatus
		want     bool
	}{
		{"pay then confirm", StatusPendingPayment, StatusConfirmed, true},
		{"guest cancels before payment", StatusPendingPayment, StatusCancelled, true},
		{"approval then confirm", StatusPendingApproval, StatusConfirmed, true},
		{"provider rejects", StatusPendingApproval, StatusRejected, true},
		{"confirmed check-in", StatusConfirmed, StatusCheckedIn, true},
		{"confirmed cancel", StatusConfirmed, StatusCancelled, true},
		{"check-out", StatusCheckedIn, StatusCompleted, true},

		{"no reject without approval flow", StatusPendingPayment, StatusRejected, false},
		{"no skipping confirmation", StatusPendingPayment, StatusCheckedIn, false},
		{"no cancel mid-stay", StatusCheckedIn, StatusCancelled, false},
		{"completed is terminal", StatusCompleted, StatusConfirmed, false},
		{"cancelled is terminal", StatusCancelled, StatusPendingPayment, false},
		{"rejected is terminal", StatusRejected, StatusConfirmed, false},
		{"no self transition", StatusConfirmed, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t,
		[]BookingStatus{StatusPendingPayment, StatusPendingApproval},
		SourcesFor(StatusConfirmed))

	assert.ElementsMatch(t,
		[]BookingStatus{StatusPendingPayment, StatusPendingApproval, StatusConfirmed},
		SourcesFor(StatusCancelled))

	assert.ElementsMatch(t, []BookingStatus{StatusCheckedIn}, SourcesFor(StatusCompleted))
	assert.ElementsMatch(t, []BookingStatus{StatusPendingApproval}, SourcesFor(StatusRejected))
	assert.Empty(t, SourcesFor(StatusPendingPayment))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusPendingPayment.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
}

func TestActive(t *testing.T) {
	assert.True(t, StatusPendingPayment.Active())
	assert.True(t, StatusPendingApproval.Active())
	assert.True(t, StatusConfirmed.Active())
	assert.True(t, StatusCheckedIn.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusCancelled.Active())
	assert.False(t, StatusRejected.Active())
}

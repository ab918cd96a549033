package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/staymarket/staycore/internal/domain"
	"github.com/staymarket/staycore/internal/repository"
)

var (
	ErrUnitNotFound    = errors.New("unit not found")
	ErrUnitInactive    = errors.New("unit is not active")
	ErrBookingNotFound = errors.New("booking not found")
	ErrDepositNotMet   = errors.New("required deposit not paid")
	ErrRateLimited     = errors.New("rate limited")
)

// UnavailableError names the first night that blocks the stay.
type UnavailableError struct {
	Date     time.Time
	StopSell bool
}

func (e UnavailableError) Error() string {
	if e.StopSell {
		return fmt.Sprintf("sales stopped on %s", e.Date.Format(time.DateOnly))
	}
	return fmt.Sprintf("not enough units available on %s", e.Date.Format(time.DateOnly))
}

// MinStayError reports a stay shorter than the strictest minimum across the
// requested nights.
type MinStayError struct {
	Required int
	Nights   int
}

func (e MinStayError) Error() string {
	return fmt.Sprintf("stay of %d nights is below the %d-night minimum", e.Nights, e.Required)
}

// NotInitializedError marks a range the availability horizon does not cover.
type NotInitializedError struct {
	UnitID uuid.UUID
	Date   time.Time
}

func (e NotInitializedError) Error() string {
	return fmt.Sprintf("availability not initialized for unit %s from %s",
		e.UnitID, e.Date.Format(time.DateOnly))
}

func (e NotInitializedError) Unwrap() error {
	return repository.ErrNotInitialized
}

// IllegalTransitionError reports a status change the state machine forbids.
type IllegalTransitionError struct {
	From domain.BookingStatus
	To   domain.BookingStatus
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

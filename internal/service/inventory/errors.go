package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrUnitNotFound      = errors.New("unit not found")
	ErrSeasonNotFound    = errors.New("season not found")
	ErrHasActiveBookings = errors.New("unit has active bookings")
	ErrHorizonCeiling    = errors.New("range exceeds the initialization ceiling")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

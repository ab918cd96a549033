package query

import "errors"

var (
	ErrUnitNotFound    = errors.New("unit not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrRangeTooWide    = errors.New("requested range is too wide")
	ErrBadRange        = errors.New("end must be after start")
)

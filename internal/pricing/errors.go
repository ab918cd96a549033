package pricing

import "errors"

var (
	ErrEmptyRange = errors.New("stay must cover at least one night")
	ErrNoUnits    = errors.New("unit count must be positive")
	ErrMissingDay = errors.New("no availability row for night")
)

package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnitsUnavailable  = errors.New("not enough units available")
	ErrIllegalTransition = errors.New("illegal booking status transition")
	ErrNotInitialized    = errors.New("availability not initialized for range")
)

package payment

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingClosed   = errors.New("booking is closed")
	ErrNonPositive     = errors.New("payment amount must be positive")
)

// OverpaymentError rejects a payment that would push the ledger past the
// booking total. RemainingCents is what the booking can still accept.
type OverpaymentError struct {
	AmountCents    int64
	RemainingCents int64
}

func (e OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %d cents exceeds remaining balance of %d cents",
		e.AmountCents, e.RemainingCents)
}

package domain

type BookingStatus string

const (
	StatusPendingPayment  BookingStatus = "pending_payment"
	StatusPendingApproval BookingStatus = "pending_approval"
	StatusConfirmed       BookingStatus = "confirmed"
	StatusCheckedIn       BookingStatus = "checked_in"
	StatusCompleted       BookingStatus = "completed"
	StatusCancelled       BookingStatus = "cancelled"
	StatusRejected        BookingStatus = "rejected"
)

// transitions is the booking state machine. A booking is born in
// pending_payment, or pending_approval for units requiring provider sign-off.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPendingPayment:  {StatusConfirmed, StatusCancelled},
	StatusPendingApproval: {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:       {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:       {StatusCompleted},
}

// CanTransition reports whether moving a booking from one status to another
// is a legal state-machine step. Terminal statuses permit nothing.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status from which the given status is reachable,
// used to guard status updates at the storage layer.
func SourcesFor(to BookingStatus) []BookingStatus {
	var out []BookingStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// IsTerminal reports whether no further transitions exist for the status.
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Active statuses are those still holding capacity against availability.
func (s BookingStatus) Active() bool {
	switch s {
	case StatusPendingPayment, StatusPendingApproval, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

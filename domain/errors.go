package domain

import "fmt"

const (
	PastCheckInError      = "Check-in date can not be in the past"
	TooFarAheadError      = "Reservations are accepted at most a year ahead"
	DateOrderError        = "Check-out date must be after check-in date"
	StayTooLongError      = "Maximum stay length is 30 nights"
	CapacityExceededError = "Guest count exceeds cottage capacity"
	DatesUnavailableError = "Selected dates are unavailable, please choose other dates"
	CottageInactiveError  = "Cottage is not open for booking"
	InvalidDateError      = "Invalid date format"
)

// ValidationError covers bad input: date ordering, past dates, capacity,
// stay-length bounds. Always recoverable by the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError means the candidate date range overlaps an active
// reservation; the caller should offer alternative dates.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StateError is an attempted lifecycle transition not permitted from the
// reservation's current status.
type StateError struct {
	From   BookingStatus
	To     BookingStatus
	Reason string
}

func (e StateError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("transition from %s to %s is not allowed", e.From, e.To)
}

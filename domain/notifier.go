package domain

import "context"

// Notifier is called by the booking workflow at the exact transition
// points that warrant a notification. Implementations must never let a
// delivery failure affect the reservation's recorded state.
type Notifier interface {
	ReservationCreated(ctx context.Context, reservation *Reservation, cottage *Cottage)
	ReservationConfirmed(ctx context.Context, reservation *Reservation, cottage *Cottage)
	ReservationCancelled(ctx context.Context, reservation *Reservation, cottage *Cottage)
	CallbackRequested(ctx context.Context, lead *CallbackRequest)
}

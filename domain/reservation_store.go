package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchFilter narrows the operator dashboard listing. Zero values mean
// "no restriction".
type SearchFilter struct {
	CottageID *uuid.UUID
	Status    BookingStatus
	From      time.Time
	Until     time.Time
	Limit     int
}

type ReservationStore interface {
	Insert(ctx context.Context, reservation *Reservation) (*Reservation, error)
	Update(ctx context.Context, reservation *Reservation) (*Reservation, error)
	// UpdateStatus writes the status as given; callers must check
	// CanTransitionTo first, the store does not re-validate the lifecycle.
	UpdateStatus(ctx context.Context, id uuid.UUID, status BookingStatus) (*Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	GetByUser(ctx context.Context, userID string) (Reservations, error)
	// GetActiveForCottage returns reservations with an active status whose
	// range overlaps [from, until), optionally excluding one reservation id.
	GetActiveForCottage(ctx context.Context, cottageID uuid.UUID, from, until time.Time, exclude *uuid.UUID) (Reservations, error)
	GetElapsedConfirmed(ctx context.Context, today time.Time) (Reservations, error)
	GetRecent(ctx context.Context, limit int) (Reservations, error)
	Search(ctx context.Context, filter SearchFilter) (Reservations, error)
	CountByStatus(ctx context.Context) (map[BookingStatus]int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

package domain

import (
	"context"

	"github.com/google/uuid"
)

type CottageStore interface {
	Insert(ctx context.Context, cottage *Cottage) (*Cottage, error)
	Update(ctx context.Context, cottage *Cottage) (*Cottage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Cottage, error)
	GetAll(ctx context.Context, activeOnly bool) ([]*Cottage, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

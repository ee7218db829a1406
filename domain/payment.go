package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment tracks the single payment attached to a reservation. Amount is
// snapshotted from the reservation's total price at creation.
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	ReservationID uuid.UUID     `json:"reservationId"`
	Amount        int           `json:"amount"`
	Method        string        `json:"method"`
	TransactionID string        `json:"transactionId,omitempty"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type CreatePaymentRequest struct {
	ReservationID string `json:"reservationId" validate:"required,uuid"`
	Method        string `json:"method" validate:"required"`
}

func (r *CreatePaymentRequest) Validate() error {
	return validate.Struct(r)
}

func (r *CreatePaymentRequest) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

func (p *Payment) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(p)
}

type PaymentStore interface {
	Insert(ctx context.Context, payment *Payment) (*Payment, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus, transactionID string) (*Payment, error)
}

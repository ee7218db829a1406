package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadNew        LeadStatus = "new"
	LeadInProgress LeadStatus = "in_progress"
	LeadCompleted  LeadStatus = "completed"
	LeadCancelled  LeadStatus = "cancelled"
)

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadNew, LeadInProgress, LeadCompleted, LeadCancelled:
		return true
	}
	return false
}

// CallbackRequest is a "call me back" lead left by a visitor, optionally
// tied to the cottage they were looking at.
type CallbackRequest struct {
	ID            uuid.UUID  `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	Message       string     `json:"message,omitempty"`
	PreferredTime string     `json:"preferredTime,omitempty"`
	CottageID     *uuid.UUID `json:"cottageId,omitempty"`
	Status        LeadStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
}

func (c *CallbackRequest) FullName() string {
	return c.LastName + " " + c.FirstName
}

type CreateCallbackRequest struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Phone         string `json:"phone" validate:"required,e164"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Message       string `json:"message,omitempty"`
	PreferredTime string `json:"preferredTime,omitempty"`
	CottageID     string `json:"cottageId,omitempty" validate:"omitempty,uuid"`
}

func (r *CreateCallbackRequest) Validate() error {
	return validate.Struct(r)
}

func (r *CreateCallbackRequest) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

func (c *CallbackRequest) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(c)
}

type LeadStore interface {
	Insert(ctx context.Context, lead *CallbackRequest) (*CallbackRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CallbackRequest, error)
	GetAll(ctx context.Context) ([]*CallbackRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status LeadStatus) (*CallbackRequest, error)
}

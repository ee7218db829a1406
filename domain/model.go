package domain

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// allowedTransitions is the closed transition table for the reservation
// lifecycle. Terminal statuses have no outgoing transitions.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCancelled: {},
	StatusCompleted: {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsActive reports whether a reservation in this status blocks the dates
// it covers.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Cottage struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	Capacity      int       `json:"capacity"`
	PricePerNight int       `json:"pricePerNight"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Reservation occupies the nights [CheckIn, CheckOut), so the departure
// date itself is free for the next guest.
type Reservation struct {
	ID              uuid.UUID     `json:"id"`
	CottageID       uuid.UUID     `json:"cottageId"`
	UserID          string        `json:"userId,omitempty"`
	GuestName       string        `json:"guestName,omitempty"`
	GuestEmail      string        `json:"guestEmail,omitempty"`
	CheckIn         time.Time     `json:"checkIn"`
	CheckOut        time.Time     `json:"checkOut"`
	Guests          int           `json:"guests"`
	TotalPrice      int           `json:"totalPrice"`
	Status          BookingStatus `json:"status"`
	SpecialRequests string        `json:"specialRequests,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type Reservations []*Reservation

func (r *Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// EmailAddress is the guest contact email notifications go to. Identity
// lives outside this service, so a registered user's account email is not
// resolvable here; a reservation without GuestEmail gets no mail.
func (r *Reservation) EmailAddress() string {
	return r.GuestEmail
}

func (r *Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	return r.CheckIn.Before(checkOut) && r.CheckOut.After(checkIn)
}

// NormalizeDate truncates a timestamp to the calendar date in UTC, the
// granularity all availability logic works at.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func TotalPrice(pricePerNight int, checkIn, checkOut time.Time) int {
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	return nights * pricePerNight
}

const DateLayout = "2006-01-02"

type CreateReservationRequest struct {
	CottageID       string `json:"cottageId" validate:"required,uuid"`
	UserID          string `json:"userId,omitempty"`
	GuestName       string `json:"guestName,omitempty"`
	GuestEmail      string `json:"guestEmail,omitempty" validate:"omitempty,email"`
	CheckIn         string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut        string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests          int    `json:"guests" validate:"required,min=1"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

type EditReservationRequest struct {
	CheckIn         string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut        string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests          int    `json:"guests" validate:"required,min=1"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
}

type CreateCottageRequest struct {
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	Address       string `json:"address" validate:"required"`
	Capacity      int    `json:"capacity" validate:"required,min=1"`
	PricePerNight int    `json:"pricePerNight" validate:"required,min=1"`
}

var validate = validator.New()

func (r *CreateReservationRequest) Validate() error {
	return validate.Struct(r)
}

func (r *EditReservationRequest) Validate() error {
	return validate.Struct(r)
}

func (r *ChangeStatusRequest) Validate() error {
	return validate.Struct(r)
}

func (r *CreateCottageRequest) Validate() error {
	return validate.Struct(r)
}

func (r *Reservation) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(r)
}

func (r *Reservation) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

func (r *Reservations) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(r)
}

func (c *Cottage) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(c)
}

func (r *CreateReservationRequest) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

func (r *EditReservationRequest) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

func (r *ChangeStatusRequest) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

func (r *CreateCottageRequest) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(r)
}

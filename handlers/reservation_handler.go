package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/authorization"
	"github.com/AndyKimLi/cottage-booking/domain"
	application "github.com/AndyKimLi/cottage-booking/service"
)

type KeyProduct struct{}

type ReservationHandler struct {
	logger       *log.Logger
	booking      *application.BookingService
	availability *application.AvailabilityChecker
	tracer       trace.Tracer
}

func NewReservationHandler(l *log.Logger, booking *application.BookingService, availability *application.AvailabilityChecker, t trace.Tracer) *ReservationHandler {
	return &ReservationHandler{
		logger:       l,
		booking:      booking,
		availability: availability,
		tracer:       t,
	}
}

func (s *ReservationHandler) CreateReservation(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.CreateReservation")
	defer span.End()

	req := h.Context().Value(KeyProduct{}).(*domain.CreateReservationRequest)

	if req.UserID == "" {
		if userID, err := authorization.ExtractUserID(h); err == nil {
			req.UserID = userID
		}
	}

	created, err := s.booking.CreateReservation(ctx, req, false)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	rw.WriteHeader(http.StatusCreated)
	err = created.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

// CreateInstantReservation is the staff quick-booking path: the reservation
// is created already confirmed, for walk-ins and phone bookings.
func (s *ReservationHandler) CreateInstantReservation(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.CreateInstantReservation")
	defer span.End()

	req := h.Context().Value(KeyProduct{}).(*domain.CreateReservationRequest)

	created, err := s.booking.CreateReservation(ctx, req, true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	rw.WriteHeader(http.StatusCreated)
	err = created.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *ReservationHandler) EditReservation(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.EditReservation")
	defer span.End()

	id, ok := s.pathID(rw, h)
	if !ok {
		return
	}

	req := h.Context().Value(KeyProduct{}).(*domain.EditReservationRequest)

	updated, err := s.booking.EditReservation(ctx, id, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	err = updated.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *ReservationHandler) CancelReservation(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.CancelReservation")
	defer span.End()

	id, ok := s.pathID(rw, h)
	if !ok {
		return
	}

	cancelled, err := s.booking.CancelReservation(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	s.logger.Print("Reservation cancelled successfully: ", cancelled.ID)

	err = cancelled.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *ReservationHandler) ChangeStatus(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.ChangeStatus")
	defer span.End()

	id, ok := s.pathID(rw, h)
	if !ok {
		return
	}

	req := h.Context().Value(KeyProduct{}).(*domain.ChangeStatusRequest)

	updated, err := s.booking.ChangeStatus(ctx, id, domain.BookingStatus(req.Status))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	err = updated.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *ReservationHandler) GetReservation(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.GetReservation")
	defer span.End()

	id, ok := s.pathID(rw, h)
	if !ok {
		return
	}

	reservation, err := s.booking.GetReservation(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	err = reservation.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *ReservationHandler) GetReservationsByUser(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.GetReservationsByUser")
	defer span.End()

	userID, err := authorization.ExtractUserID(h)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(rw, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reservations, err := s.booking.GetUserReservations(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Database exception: ", err)
		http.Error(rw, "Error getting reservations", http.StatusInternalServerError)
		return
	}

	err = reservations.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

// CheckAvailability answers ?checkIn=2026-06-01&checkOut=2026-06-04 for one
// cottage with {"available": true|false}.
func (s *ReservationHandler) CheckAvailability(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.CheckAvailability")
	defer span.End()

	cottageID, ok := s.pathID(rw, h)
	if !ok {
		return
	}

	checkIn, err := time.Parse(domain.DateLayout, h.URL.Query().Get("checkIn"))
	if err != nil {
		http.Error(rw, domain.InvalidDateError, http.StatusBadRequest)
		return
	}
	checkOut, err := time.Parse(domain.DateLayout, h.URL.Query().Get("checkOut"))
	if err != nil {
		http.Error(rw, domain.InvalidDateError, http.StatusBadRequest)
		return
	}

	available, err := s.availability.IsAvailable(ctx, cottageID, domain.NormalizeDate(checkIn), domain.NormalizeDate(checkOut), nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	writeJSON(rw, map[string]bool{"available": available})
}

func (s *ReservationHandler) GetOccupiedDates(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "ReservationHandler.GetOccupiedDates")
	defer span.End()

	cottageID, ok := s.pathID(rw, h)
	if !ok {
		return
	}

	horizonDays := 0
	if raw := h.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(rw, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		horizonDays = parsed
	}

	dates, err := s.availability.ListOccupiedDates(ctx, cottageID, horizonDays, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeError(rw, err)
		return
	}

	formatted := make([]string, 0, len(dates))
	for _, date := range dates {
		formatted = append(formatted, date.Format(domain.DateLayout))
	}

	writeJSON(rw, map[string][]string{"occupiedDates": formatted})
}

func (s *ReservationHandler) pathID(rw http.ResponseWriter, h *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(h)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		s.logger.Print("Invalid id in path: ", err)
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps the domain error taxonomy onto HTTP statuses. Anything
// untyped is a 500 and gets logged as a database exception.
func (s *ReservationHandler) writeError(rw http.ResponseWriter, err error) {
	writeDomainError(rw, s.logger, err)
}

func writeDomainError(rw http.ResponseWriter, logger *log.Logger, err error) {
	var validationErr domain.ValidationError
	var conflictErr domain.ConflictError
	var notFoundErr domain.NotFoundError
	var stateErr domain.StateError

	switch {
	case errors.As(err, &validationErr):
		http.Error(rw, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		http.Error(rw, notFoundErr.Error(), http.StatusNotFound)
	case errors.As(err, &conflictErr):
		http.Error(rw, conflictErr.Error(), http.StatusConflict)
	case errors.As(err, &stateErr):
		http.Error(rw, stateErr.Error(), http.StatusConflict)
	default:
		logger.Print("Database exception: ", err)
		http.Error(rw, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *ReservationHandler) MiddlewareReservationDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		request := &domain.CreateReservationRequest{}
		err := request.FromJSON(h.Body)
		if err != nil {
			http.Error(rw, "Unable to decode json", http.StatusBadRequest)
			s.logger.Print(err)
			return
		}
		ctx := context.WithValue(h.Context(), KeyProduct{}, request)
		h = h.WithContext(ctx)
		next.ServeHTTP(rw, h)
	})
}

func (s *ReservationHandler) MiddlewareEditDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		request := &domain.EditReservationRequest{}
		err := request.FromJSON(h.Body)
		if err != nil {
			http.Error(rw, "Unable to decode json", http.StatusBadRequest)
			s.logger.Print(err)
			return
		}
		ctx := context.WithValue(h.Context(), KeyProduct{}, request)
		h = h.WithContext(ctx)
		next.ServeHTTP(rw, h)
	})
}

func (s *ReservationHandler) MiddlewareStatusDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		request := &domain.ChangeStatusRequest{}
		err := request.FromJSON(h.Body)
		if err != nil {
			http.Error(rw, "Unable to decode json", http.StatusBadRequest)
			s.logger.Print(err)
			return
		}
		ctx := context.WithValue(h.Context(), KeyProduct{}, request)
		h = h.WithContext(ctx)
		next.ServeHTTP(rw, h)
	})
}

func MiddlewareContentTypeSet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		rw.Header().Add("Content-Type", "application/json")
		next.ServeHTTP(rw, h)
	})
}

func ExtractTraceInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

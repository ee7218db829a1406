package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

const (
	MaxAdvanceDays = 365
	MaxStayNights  = 30
)

// BookingService runs the reservation lifecycle: validation, availability
// check, price computation, persistence, status transitions. Notification
// dispatch is fire-and-forget and never affects the recorded state.
type BookingService struct {
	reservations domain.ReservationStore
	cottages     domain.CottageStore
	availability *AvailabilityChecker
	notifier     domain.Notifier
	clock        domain.Clock
	tracer       trace.Tracer
	logger       *logrus.Logger
}

func NewBookingService(reservations domain.ReservationStore, cottages domain.CottageStore, availability *AvailabilityChecker, notifier domain.Notifier, clock domain.Clock, tracer trace.Tracer, logger *logrus.Logger) *BookingService {
	return &BookingService{
		reservations: reservations,
		cottages:     cottages,
		availability: availability,
		notifier:     notifier,
		clock:        clock,
		tracer:       tracer,
		logger:       logger,
	}
}

// CreateReservation persists a new reservation after all guards pass.
// instantConfirm is the operator quick-booking path: the reservation is
// born confirmed instead of pending.
func (service *BookingService) CreateReservation(ctx context.Context, req *domain.CreateReservationRequest, instantConfirm bool) (*domain.Reservation, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.CreateReservation")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ValidationError{Reason: err.Error()}
	}

	cottageID, err := uuid.Parse(req.CottageID)
	if err != nil {
		return nil, domain.ValidationError{Field: "cottageId", Reason: err.Error()}
	}

	checkIn, checkOut, err := parseStayDates(req.CheckIn, req.CheckOut)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cottage, err := service.cottages.GetByID(ctx, cottageID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := service.validateStay(cottage, checkIn, checkOut, req.Guests); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	available, err := service.availability.IsAvailable(ctx, cottageID, checkIn, checkOut, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !available {
		span.SetStatus(codes.Error, domain.DatesUnavailableError)
		return nil, domain.ConflictError{Reason: domain.DatesUnavailableError}
	}

	status := domain.StatusPending
	if instantConfirm {
		status = domain.StatusConfirmed
	}

	reservation := &domain.Reservation{
		CottageID:       cottageID,
		UserID:          req.UserID,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		TotalPrice:      domain.TotalPrice(cottage.PricePerNight, checkIn, checkOut),
		Status:          status,
		SpecialRequests: req.SpecialRequests,
	}

	created, err := service.reservations.Insert(ctx, reservation)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.availability.InvalidateCottage(ctx, cottageID)
	service.dispatch(func(ctx context.Context) {
		service.notifier.ReservationCreated(ctx, created, cottage)
	})
	// a reservation born confirmed still owes the guest the confirmation
	// mail that normally goes out on the pending -> confirmed transition
	if created.Status == domain.StatusConfirmed {
		service.dispatch(func(ctx context.Context) {
			service.notifier.ReservationConfirmed(ctx, created, cottage)
		})
	}

	service.logger.Infof("Reservation %s created for cottage %s (%s - %s), status %s",
		created.ID, cottage.Name,
		created.CheckIn.Format(domain.DateLayout), created.CheckOut.Format(domain.DateLayout),
		created.Status)

	return created, nil
}

// EditReservation changes dates, guest count or requests. Only pending
// reservations can be edited; availability is re-checked with the
// reservation itself excluded, and the price is recomputed.
func (service *BookingService) EditReservation(ctx context.Context, id uuid.UUID, req *domain.EditReservationRequest) (*domain.Reservation, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.EditReservation")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ValidationError{Reason: err.Error()}
	}

	reservation, err := service.reservations.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if reservation.Status != domain.StatusPending {
		span.SetStatus(codes.Error, "Reservation is not editable")
		return nil, domain.StateError{
			From:   reservation.Status,
			Reason: "only pending reservations can be edited",
		}
	}

	checkIn, checkOut, err := parseStayDates(req.CheckIn, req.CheckOut)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cottage, err := service.cottages.GetByID(ctx, reservation.CottageID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := service.validateStay(cottage, checkIn, checkOut, req.Guests); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	available, err := service.availability.IsAvailable(ctx, cottage.ID, checkIn, checkOut, &id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !available {
		span.SetStatus(codes.Error, domain.DatesUnavailableError)
		return nil, domain.ConflictError{Reason: domain.DatesUnavailableError}
	}

	reservation.CheckIn = checkIn
	reservation.CheckOut = checkOut
	reservation.Guests = req.Guests
	reservation.SpecialRequests = req.SpecialRequests
	reservation.TotalPrice = domain.TotalPrice(cottage.PricePerNight, checkIn, checkOut)

	updated, err := service.reservations.Update(ctx, reservation)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.availability.InvalidateCottage(ctx, cottage.ID)

	return updated, nil
}

// CancelReservation moves a pending or confirmed reservation to cancelled
// and frees its dates. Terminal reservations are rejected untouched.
func (service *BookingService) CancelReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.CancelReservation")
	defer span.End()

	reservation, err := service.reservations.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !reservation.Status.CanTransitionTo(domain.StatusCancelled) {
		span.SetStatus(codes.Error, "Reservation is not cancellable")
		return nil, domain.StateError{From: reservation.Status, To: domain.StatusCancelled}
	}

	cancelled, err := service.reservations.UpdateStatus(ctx, id, domain.StatusCancelled)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.availability.InvalidateCottage(ctx, cancelled.CottageID)

	cottage, err := service.cottages.GetByID(ctx, cancelled.CottageID)
	if err != nil {
		service.logger.Warnf("Cancelled reservation %s but could not load cottage for notification: %v", id, err)
		return cancelled, nil
	}
	service.dispatch(func(ctx context.Context) {
		service.notifier.ReservationCancelled(ctx, cancelled, cottage)
	})

	return cancelled, nil
}

// ChangeStatus applies a staff-driven transition through the lifecycle
// table. Confirming notifies the guest by email and the staff channel.
func (service *BookingService) ChangeStatus(ctx context.Context, id uuid.UUID, next domain.BookingStatus) (*domain.Reservation, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.ChangeStatus")
	defer span.End()

	if !next.IsValid() {
		return nil, domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	reservation, err := service.reservations.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !reservation.Status.CanTransitionTo(next) {
		span.SetStatus(codes.Error, "Transition not allowed")
		return nil, domain.StateError{From: reservation.Status, To: next}
	}

	updated, err := service.reservations.UpdateStatus(ctx, id, next)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.availability.InvalidateCottage(ctx, updated.CottageID)

	cottage, err := service.cottages.GetByID(ctx, updated.CottageID)
	if err != nil {
		service.logger.Warnf("Changed status of reservation %s but could not load cottage for notification: %v", id, err)
		return updated, nil
	}

	switch next {
	case domain.StatusConfirmed:
		service.dispatch(func(ctx context.Context) {
			service.notifier.ReservationConfirmed(ctx, updated, cottage)
		})
	case domain.StatusCancelled:
		service.dispatch(func(ctx context.Context) {
			service.notifier.ReservationCancelled(ctx, updated, cottage)
		})
	}

	return updated, nil
}

// CompleteElapsedReservations marks confirmed reservations whose check-out
// has passed as completed. Run periodically from startup.
func (service *BookingService) CompleteElapsedReservations(ctx context.Context) (int, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.CompleteElapsedReservations")
	defer span.End()

	elapsed, err := service.reservations.GetElapsedConfirmed(ctx, service.clock.Today())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	completed := 0
	for _, reservation := range elapsed {
		if !reservation.Status.CanTransitionTo(domain.StatusCompleted) {
			continue
		}
		if _, err := service.reservations.UpdateStatus(ctx, reservation.ID, domain.StatusCompleted); err != nil {
			span.SetStatus(codes.Error, err.Error())
			service.logger.Errorf("Failed to complete reservation %s: %v", reservation.ID, err)
			continue
		}
		completed++
	}

	if completed > 0 {
		service.logger.Infof("Marked %d reservations as completed", completed)
	}

	return completed, nil
}

func (service *BookingService) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.GetReservation")
	defer span.End()

	return service.reservations.GetByID(ctx, id)
}

func (service *BookingService) GetUserReservations(ctx context.Context, userID string) (domain.Reservations, error) {
	ctx, span := service.tracer.Start(ctx, "BookingService.GetUserReservations")
	defer span.End()

	return service.reservations.GetByUser(ctx, userID)
}

// validateStay applies the guards shared by creation and editing. Nothing
// is persisted unless every guard passes.
func (service *BookingService) validateStay(cottage *domain.Cottage, checkIn, checkOut time.Time, guests int) error {
	if !cottage.IsActive {
		return domain.ValidationError{Field: "cottageId", Reason: domain.CottageInactiveError}
	}

	today := service.clock.Today()
	if checkIn.Before(today) {
		return domain.ValidationError{Field: "checkIn", Reason: domain.PastCheckInError}
	}
	if checkIn.After(today.AddDate(0, 0, MaxAdvanceDays)) {
		return domain.ValidationError{Field: "checkIn", Reason: domain.TooFarAheadError}
	}

	if !checkIn.Before(checkOut) {
		return domain.ValidationError{Field: "checkOut", Reason: domain.DateOrderError}
	}
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights > MaxStayNights {
		return domain.ValidationError{Field: "checkOut", Reason: domain.StayTooLongError}
	}

	if guests < 1 {
		return domain.ValidationError{Field: "guests", Reason: "at least one guest is required"}
	}
	if guests > cottage.Capacity {
		return domain.ValidationError{Field: "guests", Reason: domain.CapacityExceededError}
	}

	return nil
}

// dispatch runs a notification on its own goroutine with a fresh context,
// so delivery never blocks or rolls back the booking transaction.
func (service *BookingService) dispatch(notify func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		notify(ctx)
	}()
}

func parseStayDates(rawCheckIn, rawCheckOut string) (time.Time, time.Time, error) {
	checkIn, err := time.Parse(domain.DateLayout, rawCheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "checkIn", Reason: domain.InvalidDateError}
	}
	checkOut, err := time.Parse(domain.DateLayout, rawCheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "checkOut", Reason: domain.InvalidDateError}
	}
	return domain.NormalizeDate(checkIn), domain.NormalizeDate(checkOut), nil
}

package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

// PaymentService records the single payment attached to a reservation.
// It does not talk to a payment provider; the provider's callback drives
// the status updates.
type PaymentService struct {
	payments     domain.PaymentStore
	reservations domain.ReservationStore
	tracer       trace.Tracer
	logger       *logrus.Logger
}

func NewPaymentService(payments domain.PaymentStore, reservations domain.ReservationStore, tracer trace.Tracer, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		payments:     payments,
		reservations: reservations,
		tracer:       tracer,
		logger:       logger,
	}
}

func (service *PaymentService) CreatePayment(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.Payment, error) {
	ctx, span := service.tracer.Start(ctx, "PaymentService.CreatePayment")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ValidationError{Reason: err.Error()}
	}

	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		return nil, domain.ValidationError{Field: "reservationId", Reason: err.Error()}
	}

	reservation, err := service.reservations.GetByID(ctx, reservationID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if reservation.Status.IsTerminal() {
		span.SetStatus(codes.Error, "Reservation is not payable")
		return nil, domain.StateError{
			From:   reservation.Status,
			Reason: "cancelled or completed reservations can not be paid",
		}
	}

	payment := &domain.Payment{
		ReservationID: reservationID,
		Amount:        reservation.TotalPrice,
		Method:        req.Method,
		Status:        domain.PaymentPending,
	}

	created, err := service.payments.Insert(ctx, payment)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.logger.Infof("Payment %s created for reservation %s, amount %d", created.ID, reservationID, created.Amount)

	return created, nil
}

func (service *PaymentService) GetPaymentForReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	ctx, span := service.tracer.Start(ctx, "PaymentService.GetPaymentForReservation")
	defer span.End()

	return service.payments.GetByReservation(ctx, reservationID)
}

func (service *PaymentService) ChangePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, transactionID string) (*domain.Payment, error) {
	ctx, span := service.tracer.Start(ctx, "PaymentService.ChangePaymentStatus")
	defer span.End()

	if !status.IsValid() {
		return nil, domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	return service.payments.UpdateStatus(ctx, id, status, transactionID)
}

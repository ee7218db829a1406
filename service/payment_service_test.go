package application

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

func newPaymentFixture() (*PaymentService, *bookingFixture) {
	booking := newBookingFixture()
	payments := newFakePaymentStore()

	service := NewPaymentService(payments, booking.reservations, trace.NewNoopTracerProvider().Tracer("test"), logrus.New())
	return service, booking
}

func TestCreatePayment(t *testing.T) {
	service, booking := newPaymentFixture()
	ctx := context.Background()

	reservation, err := booking.booking.CreateReservation(ctx, booking.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	payment, err := service.CreatePayment(ctx, &domain.CreatePaymentRequest{
		ReservationID: reservation.ID.String(),
		Method:        "card",
	})
	require.NoError(t, err)

	assert.Equal(t, reservation.TotalPrice, payment.Amount)
	assert.Equal(t, domain.PaymentPending, payment.Status)
}

func TestCreatePaymentRejectsTerminal(t *testing.T) {
	service, booking := newPaymentFixture()
	ctx := context.Background()

	reservation, err := booking.booking.CreateReservation(ctx, booking.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)
	_, err = booking.booking.CancelReservation(ctx, reservation.ID)
	require.NoError(t, err)

	_, err = service.CreatePayment(ctx, &domain.CreatePaymentRequest{
		ReservationID: reservation.ID.String(),
		Method:        "card",
	})
	assert.ErrorAs(t, err, &domain.StateError{})
}

func TestChangePaymentStatus(t *testing.T) {
	service, booking := newPaymentFixture()
	ctx := context.Background()

	reservation, err := booking.booking.CreateReservation(ctx, booking.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	payment, err := service.CreatePayment(ctx, &domain.CreatePaymentRequest{
		ReservationID: reservation.ID.String(),
		Method:        "card",
	})
	require.NoError(t, err)

	updated, err := service.ChangePaymentStatus(ctx, payment.ID, domain.PaymentCompleted, "tx-042")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, updated.Status)
	assert.Equal(t, "tx-042", updated.TransactionID)

	_, err = service.ChangePaymentStatus(ctx, payment.ID, domain.PaymentStatus("chargeback"), "")
	assert.ErrorAs(t, err, &domain.ValidationError{})

	fetched, err := service.GetPaymentForReservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, fetched.ID)
}

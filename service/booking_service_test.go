package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyKimLi/cottage-booking/domain"
)

func TestCreateReservation(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, 6000, created.TotalPrice)
	assert.Equal(t, 3, created.Nights())

	assert.Eventually(t, func() bool {
		events := fixture.notifier.Events()
		return len(events) == 1 && events[0].kind == "created" && events[0].reservationID == created.ID
	}, time.Second, 10*time.Millisecond)
}

func TestCreateReservationInstantConfirm(t *testing.T) {
	fixture := newBookingFixture()

	created, err := fixture.booking.CreateReservation(context.Background(), fixture.createRequest("2026-06-01", "2026-06-04", 2), true)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, created.Status)

	// born-confirmed reservations trigger the confirmation mail too
	assert.Eventually(t, func() bool {
		var sawCreated, sawConfirmed bool
		for _, event := range fixture.notifier.Events() {
			if event.reservationID != created.ID {
				continue
			}
			switch event.kind {
			case "created":
				sawCreated = true
			case "confirmed":
				sawConfirmed = true
			}
		}
		return sawCreated && sawConfirmed
	}, time.Second, 10*time.Millisecond)
}

func TestCreateReservationOverlapRejected(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	_, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		checkIn  string
		checkOut string
	}{
		{"identical range", "2026-06-01", "2026-06-04"},
		{"straddles start", "2026-05-30", "2026-06-02"},
		{"straddles end", "2026-06-03", "2026-06-06"},
		{"contained", "2026-06-02", "2026-06-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.booking.CreateReservation(ctx, fixture.createRequest(tt.checkIn, tt.checkOut, 2), false)
			assert.ErrorAs(t, err, &domain.ConflictError{})
		})
	}
}

// A stay may start on another stay's departure date.
func TestCreateReservationBackToBack(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	_, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	after, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-04", "2026-06-06", 2), false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, after.Status)

	before, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-05-29", "2026-06-01", 2), false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, before.Status)
}

func TestCreateReservationValidation(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	tests := []struct {
		name     string
		checkIn  string
		checkOut string
		guests   int
	}{
		{"past check-in", "2026-04-30", "2026-05-03", 2},
		{"more than a year ahead", "2027-05-02", "2027-05-05", 2},
		{"check-out before check-in", "2026-06-04", "2026-06-01", 2},
		{"zero nights", "2026-06-01", "2026-06-01", 2},
		{"stay too long", "2026-06-01", "2026-07-02", 2},
		{"over capacity", "2026-06-01", "2026-06-04", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.booking.CreateReservation(ctx, fixture.createRequest(tt.checkIn, tt.checkOut, tt.guests), false)
			assert.ErrorAs(t, err, &domain.ValidationError{})
		})
	}
}

func TestCreateReservationInactiveCottage(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	require.NoError(t, fixture.cottages.Deactivate(ctx, fixture.cottage.ID))

	_, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	assert.ErrorAs(t, err, &domain.ValidationError{})
}

func TestCreateReservationUnknownCottage(t *testing.T) {
	fixture := newBookingFixture()

	req := fixture.createRequest("2026-06-01", "2026-06-04", 2)
	req.CottageID = "8d2d9c80-44f1-4f4a-b67e-111111111111"

	_, err := fixture.booking.CreateReservation(context.Background(), req, false)
	assert.ErrorAs(t, err, &domain.NotFoundError{})
}

func TestEditReservation(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	updated, err := fixture.booking.EditReservation(ctx, created.ID, &domain.EditReservationRequest{
		CheckIn:  "2026-06-02",
		CheckOut: "2026-06-06",
		Guests:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, 8000, updated.TotalPrice)
	assert.Equal(t, 3, updated.Guests)
	assert.Equal(t, domain.StatusPending, updated.Status)
}

// Editing keeps the reservation's own dates out of the conflict check, so
// shrinking or shifting within the original range works.
func TestEditReservationExcludesSelf(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	updated, err := fixture.booking.EditReservation(ctx, created.ID, &domain.EditReservationRequest{
		CheckIn:  "2026-06-02",
		CheckOut: "2026-06-04",
		Guests:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 4000, updated.TotalPrice)
}

func TestEditReservationOnlyPending(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), true)
	require.NoError(t, err)

	_, err = fixture.booking.EditReservation(ctx, created.ID, &domain.EditReservationRequest{
		CheckIn:  "2026-06-02",
		CheckOut: "2026-06-05",
		Guests:   2,
	})
	assert.ErrorAs(t, err, &domain.StateError{})
}

func TestCancelReservation(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	cancelled, err := fixture.booking.CancelReservation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// the second cancel fails the transition check and writes nothing
	_, err = fixture.booking.CancelReservation(ctx, created.ID)
	assert.ErrorAs(t, err, &domain.StateError{})

	unchanged, err := fixture.reservations.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, cancelled.UpdatedAt, unchanged.UpdatedAt)
}

func TestCancelFreesDates(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	_, err = fixture.booking.CancelReservation(ctx, created.ID)
	require.NoError(t, err)

	rebooked, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rebooked.Status)
}

func TestChangeStatus(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	confirmed, err := fixture.booking.ChangeStatus(ctx, created.ID, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)

	assert.Eventually(t, func() bool {
		for _, event := range fixture.notifier.Events() {
			if event.kind == "confirmed" && event.reservationID == created.ID {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	completed, err := fixture.booking.ChangeStatus(ctx, created.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	_, err = fixture.booking.ChangeStatus(ctx, created.ID, domain.StatusCancelled)
	assert.ErrorAs(t, err, &domain.StateError{})
}

func TestChangeStatusRejectsUnknown(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	_, err = fixture.booking.ChangeStatus(ctx, created.ID, domain.BookingStatus("archived"))
	assert.ErrorAs(t, err, &domain.ValidationError{})
}

func TestChangeStatusSkipsTransitions(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	created, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), false)
	require.NoError(t, err)

	// pending can not jump straight to completed
	_, err = fixture.booking.ChangeStatus(ctx, created.ID, domain.StatusCompleted)
	assert.ErrorAs(t, err, &domain.StateError{})
}

func TestCompleteElapsedReservations(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	elapsed := &domain.Reservation{
		CottageID: fixture.cottage.ID,
		CheckIn:   domain.NormalizeDate(time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)),
		CheckOut:  domain.NormalizeDate(time.Date(2026, 4, 24, 0, 0, 0, 0, time.UTC)),
		Guests:    2,
		Status:    domain.StatusConfirmed,
	}
	stored, err := fixture.reservations.Insert(ctx, elapsed)
	require.NoError(t, err)

	ongoing, err := fixture.booking.CreateReservation(ctx, fixture.createRequest("2026-06-01", "2026-06-04", 2), true)
	require.NoError(t, err)

	count, err := fixture.booking.CompleteElapsedReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	completed, err := fixture.reservations.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	untouched, err := fixture.reservations.GetByID(ctx, ongoing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, untouched.Status)
}

// A row whose status changed after the sweep read it must not be forced
// to completed; the transition table gates every write.
func TestCompleteElapsedSkipsStaleRows(t *testing.T) {
	fixture := newBookingFixture()
	ctx := context.Background()

	cancelled := &domain.Reservation{
		CottageID: fixture.cottage.ID,
		CheckIn:   domain.NormalizeDate(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)),
		CheckOut:  domain.NormalizeDate(time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)),
		Guests:    2,
		Status:    domain.StatusCancelled,
	}
	stored, err := fixture.reservations.Insert(ctx, cancelled)
	require.NoError(t, err)

	booking := fixture.bookingWithStore(&staleSweepStore{
		fakeReservationStore: fixture.reservations,
		stale:                stored,
	})

	count, err := booking.CompleteElapsedReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	untouched, err := fixture.reservations.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, untouched.Status)
}

package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

type fixedClock struct {
	today time.Time
}

func (c fixedClock) Today() time.Time {
	return c.today
}

type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*domain.Reservation
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: make(map[uuid.UUID]*domain.Reservation)}
}

func (f *fakeReservationStore) Insert(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *reservation
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.reservations[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (f *fakeReservationStore) Update(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.reservations[reservation.ID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "reservation", ID: reservation.ID.String()}
	}
	updated := *reservation
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	f.reservations[updated.ID] = &updated

	result := updated
	return &result, nil
}

func (f *fakeReservationStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.reservations[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "reservation", ID: id.String()}
	}
	existing.Status = status
	existing.UpdatedAt = time.Now()

	result := *existing
	return &result, nil
}

func (f *fakeReservationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.reservations[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "reservation", ID: id.String()}
	}
	result := *existing
	return &result, nil
}

func (f *fakeReservationStore) GetByUser(ctx context.Context, userID string) (domain.Reservations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result domain.Reservations
	for _, reservation := range f.reservations {
		if reservation.UserID == userID {
			copied := *reservation
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeReservationStore) GetActiveForCottage(ctx context.Context, cottageID uuid.UUID, from, until time.Time, exclude *uuid.UUID) (domain.Reservations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result domain.Reservations
	for _, reservation := range f.reservations {
		if reservation.CottageID != cottageID || !reservation.Status.IsActive() {
			continue
		}
		if exclude != nil && reservation.ID == *exclude {
			continue
		}
		if reservation.Overlaps(from, until) {
			copied := *reservation
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeReservationStore) GetElapsedConfirmed(ctx context.Context, today time.Time) (domain.Reservations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result domain.Reservations
	for _, reservation := range f.reservations {
		if reservation.Status == domain.StatusConfirmed && !reservation.CheckOut.After(today) {
			copied := *reservation
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeReservationStore) GetRecent(ctx context.Context, limit int) (domain.Reservations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result domain.Reservations
	for _, reservation := range f.reservations {
		copied := *reservation
		result = append(result, &copied)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeReservationStore) Search(ctx context.Context, filter domain.SearchFilter) (domain.Reservations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result domain.Reservations
	for _, reservation := range f.reservations {
		if filter.CottageID != nil && reservation.CottageID != *filter.CottageID {
			continue
		}
		if filter.Status != "" && reservation.Status != filter.Status {
			continue
		}
		copied := *reservation
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeReservationStore) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[domain.BookingStatus]int)
	for _, reservation := range f.reservations {
		counts[reservation.Status]++
	}
	return counts, nil
}

func (f *fakeReservationStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, reservation := range f.reservations {
		if !reservation.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeCottageStore struct {
	mu       sync.Mutex
	cottages map[uuid.UUID]*domain.Cottage
}

func newFakeCottageStore() *fakeCottageStore {
	return &fakeCottageStore{cottages: make(map[uuid.UUID]*domain.Cottage)}
}

func (f *fakeCottageStore) Insert(ctx context.Context, cottage *domain.Cottage) (*domain.Cottage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *cottage
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	f.cottages[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (f *fakeCottageStore) Update(ctx context.Context, cottage *domain.Cottage) (*domain.Cottage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cottages[cottage.ID]; !ok {
		return nil, domain.NotFoundError{Resource: "cottage", ID: cottage.ID.String()}
	}
	stored := *cottage
	f.cottages[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (f *fakeCottageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cottage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.cottages[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "cottage", ID: id.String()}
	}
	result := *existing
	return &result, nil
}

func (f *fakeCottageStore) GetAll(ctx context.Context, activeOnly bool) ([]*domain.Cottage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*domain.Cottage
	for _, cottage := range f.cottages {
		if activeOnly && !cottage.IsActive {
			continue
		}
		copied := *cottage
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeCottageStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.cottages[id]
	if !ok {
		return domain.NotFoundError{Resource: "cottage", ID: id.String()}
	}
	existing.IsActive = false
	return nil
}

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) PostCacheData(ctx context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeCache) GetCachedValue(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", domain.NotFoundError{Resource: "cache entry", ID: key}
	}
	return value, nil
}

func (f *fakeCache) DelCachedValue(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type notifierEvent struct {
	kind          string
	reservationID uuid.UUID
}

// recordingNotifier captures dispatched notifications; dispatch runs on
// goroutines, so reads go through Events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (r *recordingNotifier) record(kind string, reservationID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, notifierEvent{kind: kind, reservationID: reservationID})
}

func (r *recordingNotifier) Events() []notifierEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifierEvent(nil), r.events...)
}

func (r *recordingNotifier) ReservationCreated(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	r.record("created", reservation.ID)
}

func (r *recordingNotifier) ReservationConfirmed(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	r.record("confirmed", reservation.ID)
}

func (r *recordingNotifier) ReservationCancelled(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	r.record("cancelled", reservation.ID)
}

func (r *recordingNotifier) CallbackRequested(ctx context.Context, lead *domain.CallbackRequest) {
	r.record("callback", uuid.Nil)
}

type bookingFixture struct {
	booking      *BookingService
	availability *AvailabilityChecker
	reservations *fakeReservationStore
	cottages     *fakeCottageStore
	cache        *fakeCache
	notifier     *recordingNotifier
	cottage      *domain.Cottage
	clock        fixedClock
}

func newBookingFixture() *bookingFixture {
	reservations := newFakeReservationStore()
	cottages := newFakeCottageStore()
	cache := newFakeCache()
	notifier := &recordingNotifier{}
	clock := fixedClock{today: domain.NormalizeDate(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))}

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	logger := logrus.New()

	availability := NewAvailabilityChecker(reservations, cache, clock, tracer, logger)
	booking := NewBookingService(reservations, cottages, availability, notifier, clock, tracer, logger)

	cottage, _ := cottages.Insert(context.Background(), &domain.Cottage{
		Name:          "Lakeside",
		Address:       "1 Shore Road",
		Capacity:      4,
		PricePerNight: 2000,
		IsActive:      true,
	})

	return &bookingFixture{
		booking:      booking,
		availability: availability,
		reservations: reservations,
		cottages:     cottages,
		cache:        cache,
		notifier:     notifier,
		cottage:      cottage,
		clock:        clock,
	}
}

// bookingWithStore rebuilds the booking service over a different
// reservation store, keeping the rest of the fixture.
func (f *bookingFixture) bookingWithStore(store domain.ReservationStore) *BookingService {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewBookingService(store, f.cottages, f.availability, f.notifier, f.clock, tracer, logrus.New())
}

// staleSweepStore reports one extra row from GetElapsedConfirmed,
// mimicking a status change that lands between the sweep's read and its
// write.
type staleSweepStore struct {
	*fakeReservationStore
	stale *domain.Reservation
}

func (s *staleSweepStore) GetElapsedConfirmed(ctx context.Context, today time.Time) (domain.Reservations, error) {
	rows, err := s.fakeReservationStore.GetElapsedConfirmed(ctx, today)
	if err != nil {
		return nil, err
	}
	copied := *s.stale
	return append(rows, &copied), nil
}

func (f *bookingFixture) createRequest(checkIn, checkOut string, guests int) *domain.CreateReservationRequest {
	return &domain.CreateReservationRequest{
		CottageID:  f.cottage.ID.String(),
		GuestName:  "Ivan Petrov",
		GuestEmail: "ivan@example.com",
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     guests,
	}
}

type fakeLeadStore struct {
	mu    sync.Mutex
	leads map[uuid.UUID]*domain.CallbackRequest
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[uuid.UUID]*domain.CallbackRequest)}
}

func (f *fakeLeadStore) Insert(ctx context.Context, lead *domain.CallbackRequest) (*domain.CallbackRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *lead
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	f.leads[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (f *fakeLeadStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CallbackRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.leads[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "callback request", ID: id.String()}
	}
	result := *existing
	return &result, nil
}

func (f *fakeLeadStore) GetAll(ctx context.Context) ([]*domain.CallbackRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*domain.CallbackRequest
	for _, lead := range f.leads {
		copied := *lead
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeLeadStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.CallbackRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.leads[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "callback request", ID: id.String()}
	}
	existing.Status = status
	now := time.Now()
	existing.ProcessedAt = &now

	result := *existing
	return &result, nil
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*domain.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (f *fakePaymentStore) Insert(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *payment
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	f.payments[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (f *fakePaymentStore) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, payment := range f.payments {
		if payment.ReservationID == reservationID {
			result := *payment
			return &result, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "payment", ID: reservationID.String()}
}

func (f *fakePaymentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, transactionID string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.payments[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "payment", ID: id.String()}
	}
	existing.Status = status
	if transactionID != "" {
		existing.TransactionID = transactionID
	}
	existing.UpdatedAt = time.Now()

	result := *existing
	return &result, nil
}

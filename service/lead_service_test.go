package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

func newLeadFixture() (*LeadService, *fakeLeadStore, *fakeCottageStore, *recordingNotifier) {
	leads := newFakeLeadStore()
	cottages := newFakeCottageStore()
	notifier := &recordingNotifier{}

	service := NewLeadService(leads, cottages, notifier, trace.NewNoopTracerProvider().Tracer("test"), logrus.New())
	return service, leads, cottages, notifier
}

func TestCreateCallbackRequest(t *testing.T) {
	service, _, _, notifier := newLeadFixture()

	created, err := service.CreateCallbackRequest(context.Background(), &domain.CreateCallbackRequest{
		FirstName: "Anna",
		LastName:  "Sidorova",
		Phone:     "+79161234567",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LeadNew, created.Status)
	assert.Nil(t, created.CottageID)

	assert.Eventually(t, func() bool {
		for _, event := range notifier.Events() {
			if event.kind == "callback" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestCreateCallbackRequestValidation(t *testing.T) {
	service, _, _, _ := newLeadFixture()

	tests := []struct {
		name string
		req  domain.CreateCallbackRequest
	}{
		{"missing phone", domain.CreateCallbackRequest{FirstName: "Anna", LastName: "Sidorova"}},
		{"malformed phone", domain.CreateCallbackRequest{FirstName: "Anna", LastName: "Sidorova", Phone: "8 916 123"}},
		{"missing name", domain.CreateCallbackRequest{Phone: "+79161234567"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateCallbackRequest(context.Background(), &tt.req)
			assert.ErrorAs(t, err, &domain.ValidationError{})
		})
	}
}

func TestCreateCallbackRequestChecksCottage(t *testing.T) {
	service, _, cottages, _ := newLeadFixture()

	cottage, err := cottages.Insert(context.Background(), &domain.Cottage{Name: "Lakeside", IsActive: true})
	require.NoError(t, err)

	created, err := service.CreateCallbackRequest(context.Background(), &domain.CreateCallbackRequest{
		FirstName: "Anna",
		LastName:  "Sidorova",
		Phone:     "+79161234567",
		CottageID: cottage.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, created.CottageID)
	assert.Equal(t, cottage.ID, *created.CottageID)

	_, err = service.CreateCallbackRequest(context.Background(), &domain.CreateCallbackRequest{
		FirstName: "Anna",
		LastName:  "Sidorova",
		Phone:     "+79161234567",
		CottageID: uuid.New().String(),
	})
	assert.ErrorAs(t, err, &domain.NotFoundError{})
}

func TestChangeCallbackStatus(t *testing.T) {
	service, _, _, _ := newLeadFixture()
	ctx := context.Background()

	created, err := service.CreateCallbackRequest(ctx, &domain.CreateCallbackRequest{
		FirstName: "Anna",
		LastName:  "Sidorova",
		Phone:     "+79161234567",
	})
	require.NoError(t, err)

	updated, err := service.ChangeCallbackStatus(ctx, created.ID, domain.LeadCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadCompleted, updated.Status)
	assert.NotNil(t, updated.ProcessedAt)

	_, err = service.ChangeCallbackStatus(ctx, created.ID, domain.LeadStatus("spam"))
	assert.ErrorAs(t, err, &domain.ValidationError{})
}

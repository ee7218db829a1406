package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

// LeadService handles "call me back" requests left by site visitors.
type LeadService struct {
	leads    domain.LeadStore
	cottages domain.CottageStore
	notifier domain.Notifier
	tracer   trace.Tracer
	logger   *logrus.Logger
}

func NewLeadService(leads domain.LeadStore, cottages domain.CottageStore, notifier domain.Notifier, tracer trace.Tracer, logger *logrus.Logger) *LeadService {
	return &LeadService{
		leads:    leads,
		cottages: cottages,
		notifier: notifier,
		tracer:   tracer,
		logger:   logger,
	}
}

func (service *LeadService) CreateCallbackRequest(ctx context.Context, req *domain.CreateCallbackRequest) (*domain.CallbackRequest, error) {
	ctx, span := service.tracer.Start(ctx, "LeadService.CreateCallbackRequest")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ValidationError{Reason: err.Error()}
	}

	lead := &domain.CallbackRequest{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Email:         req.Email,
		Message:       req.Message,
		PreferredTime: req.PreferredTime,
		Status:        domain.LeadNew,
	}

	if req.CottageID != "" {
		cottageID, err := uuid.Parse(req.CottageID)
		if err != nil {
			return nil, domain.ValidationError{Field: "cottageId", Reason: err.Error()}
		}
		if _, err := service.cottages.GetByID(ctx, cottageID); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		lead.CottageID = &cottageID
	}

	created, err := service.leads.Insert(ctx, lead)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	go func() {
		service.notifier.CallbackRequested(context.Background(), created)
	}()

	service.logger.Infof("Callback request %s created for %s", created.ID, created.Phone)

	return created, nil
}

func (service *LeadService) GetAllCallbackRequests(ctx context.Context) ([]*domain.CallbackRequest, error) {
	ctx, span := service.tracer.Start(ctx, "LeadService.GetAllCallbackRequests")
	defer span.End()

	return service.leads.GetAll(ctx)
}

func (service *LeadService) ChangeCallbackStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.CallbackRequest, error) {
	ctx, span := service.tracer.Start(ctx, "LeadService.ChangeCallbackStatus")
	defer span.End()

	if !status.IsValid() {
		return nil, domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	return service.leads.UpdateStatus(ctx, id, status)
}

package application

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

type BookingStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
	LastWeek  int `json:"lastWeek"`
}

// DashboardService backs the operator views: filtered reservation listing
// and the headline stats shown on the dashboard and in the Telegram bot.
type DashboardService struct {
	reservations domain.ReservationStore
	clock        domain.Clock
	tracer       trace.Tracer
	logger       *logrus.Logger
}

func NewDashboardService(reservations domain.ReservationStore, clock domain.Clock, tracer trace.Tracer, logger *logrus.Logger) *DashboardService {
	return &DashboardService{
		reservations: reservations,
		clock:        clock,
		tracer:       tracer,
		logger:       logger,
	}
}

func (service *DashboardService) SearchReservations(ctx context.Context, filter domain.SearchFilter) (domain.Reservations, error) {
	ctx, span := service.tracer.Start(ctx, "DashboardService.SearchReservations")
	defer span.End()

	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	return service.reservations.Search(ctx, filter)
}

func (service *DashboardService) GetStats(ctx context.Context) (*BookingStats, error) {
	ctx, span := service.tracer.Start(ctx, "DashboardService.GetStats")
	defer span.End()

	counts, err := service.reservations.CountByStatus(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	weekAgo := service.clock.Today().AddDate(0, 0, -7)
	lastWeek, err := service.reservations.CountCreatedSince(ctx, weekAgo)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stats := &BookingStats{
		Pending:   counts[domain.StatusPending],
		Confirmed: counts[domain.StatusConfirmed],
		Cancelled: counts[domain.StatusCancelled],
		Completed: counts[domain.StatusCompleted],
		LastWeek:  lastWeek,
	}
	stats.Total = stats.Pending + stats.Confirmed + stats.Cancelled + stats.Completed

	return stats, nil
}

func (service *DashboardService) GetRecentReservations(ctx context.Context, limit int) (domain.Reservations, error) {
	ctx, span := service.tracer.Start(ctx, "DashboardService.GetRecentReservations")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	return service.reservations.GetRecent(ctx, limit)
}

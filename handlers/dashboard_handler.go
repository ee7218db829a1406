package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
	application "github.com/AndyKimLi/cottage-booking/service"
)

type DashboardHandler struct {
	logger    *log.Logger
	dashboard *application.DashboardService
	tracer    trace.Tracer
}

func NewDashboardHandler(l *log.Logger, dashboard *application.DashboardService, t trace.Tracer) *DashboardHandler {
	return &DashboardHandler{
		logger:    l,
		dashboard: dashboard,
		tracer:    t,
	}
}

// SearchReservations filters the listing with query parameters: cottageId,
// status, from, until, limit. All optional.
func (s *DashboardHandler) SearchReservations(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "DashboardHandler.SearchReservations")
	defer span.End()

	filter, err := parseSearchFilter(h)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	reservations, err := s.dashboard.SearchReservations(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
		return
	}

	err = reservations.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *DashboardHandler) GetStats(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "DashboardHandler.GetStats")
	defer span.End()

	stats, err := s.dashboard.GetStats(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Database exception: ", err)
		http.Error(rw, "Error getting stats", http.StatusInternalServerError)
		return
	}

	writeJSON(rw, stats)
}

func (s *DashboardHandler) GetRecentReservations(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "DashboardHandler.GetRecentReservations")
	defer span.End()

	limit := 0
	if raw := h.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(rw, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	reservations, err := s.dashboard.GetRecentReservations(ctx, limit)
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

func parseSearchFilter(h *http.Request) (domain.SearchFilter, error) {
	var filter domain.SearchFilter
	query := h.URL.Query()

	if raw := query.Get("cottageId"); raw != "" {
		cottageID, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.ValidationError{Field: "cottageId", Reason: err.Error()}
		}
		filter.CottageID = &cottageID
	}

	filter.Status = domain.BookingStatus(query.Get("status"))

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return filter, domain.ValidationError{Field: "from", Reason: domain.InvalidDateError}
		}
		filter.From = from
	}
	if raw := query.Get("until"); raw != "" {
		until, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return filter, domain.ValidationError{Field: "until", Reason: domain.InvalidDateError}
		}
		filter.Until = until
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, domain.ValidationError{Field: "limit", Reason: "must be a number"}
		}
		filter.Limit = limit
	}

	return filter, nil
}

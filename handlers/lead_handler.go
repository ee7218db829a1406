package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
	application "github.com/AndyKimLi/cottage-booking/service"
)

type LeadHandler struct {
	logger *log.Logger
	leads  *application.LeadService
	tracer trace.Tracer
}

func NewLeadHandler(l *log.Logger, leads *application.LeadService, t trace.Tracer) *LeadHandler {
	return &LeadHandler{
		logger: l,
		leads:  leads,
		tracer: t,
	}
}

func (s *LeadHandler) CreateCallbackRequest(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "LeadHandler.CreateCallbackRequest")
	defer span.End()

	req := h.Context().Value(KeyProduct{}).(*domain.CreateCallbackRequest)

	created, err := s.leads.CreateCallbackRequest(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
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

func (s *LeadHandler) GetAllCallbackRequests(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "LeadHandler.GetAllCallbackRequests")
	defer span.End()

	leads, err := s.leads.GetAllCallbackRequests(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Database exception: ", err)
		http.Error(rw, "Error getting callback requests", http.StatusInternalServerError)
		return
	}

	writeJSON(rw, leads)
}

func (s *LeadHandler) ChangeCallbackStatus(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "LeadHandler.ChangeCallbackStatus")
	defer span.End()

	vars := mux.Vars(h)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(h.Body).Decode(&body); err != nil {
		http.Error(rw, "Unable to decode json", http.StatusBadRequest)
		s.logger.Print(err)
		return
	}

	updated, err := s.leads.ChangeCallbackStatus(ctx, id, domain.LeadStatus(body.Status))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
		return
	}

	err = updated.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

func (s *LeadHandler) MiddlewareCallbackDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		request := &domain.CreateCallbackRequest{}
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

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
)

type CottageHandler struct {
	logger   *log.Logger
	cottages domain.CottageStore
	tracer   trace.Tracer
}

func NewCottageHandler(l *log.Logger, cottages domain.CottageStore, t trace.Tracer) *CottageHandler {
	return &CottageHandler{
		logger:   l,
		cottages: cottages,
		tracer:   t,
	}
}

func (s *CottageHandler) CreateCottage(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "CottageHandler.CreateCottage")
	defer span.End()

	req := h.Context().Value(KeyProduct{}).(*domain.CreateCottageRequest)
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	cottage := &domain.Cottage{
		Name:          req.Name,
		Description:   req.Description,
		Address:       req.Address,
		Capacity:      req.Capacity,
		PricePerNight: req.PricePerNight,
		IsActive:      true,
	}

	created, err := s.cottages.Insert(ctx, cottage)
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

func (s *CottageHandler) GetCottage(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "CottageHandler.GetCottage")
	defer span.End()

	vars := mux.Vars(h)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return
	}

	cottage, err := s.cottages.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
		return
	}

	err = cottage.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

// GetAllCottages lists active cottages; staff can pass ?all=true to see
// deactivated ones too.
func (s *CottageHandler) GetAllCottages(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "CottageHandler.GetAllCottages")
	defer span.End()

	activeOnly := h.URL.Query().Get("all") != "true"

	cottages, err := s.cottages.GetAll(ctx, activeOnly)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Database exception: ", err)
		http.Error(rw, "Error getting cottages", http.StatusInternalServerError)
		return
	}

	writeJSON(rw, cottages)
}

func (s *CottageHandler) UpdateCottage(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "CottageHandler.UpdateCottage")
	defer span.End()

	vars := mux.Vars(h)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return
	}

	req := h.Context().Value(KeyProduct{}).(*domain.CreateCottageRequest)
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	cottage, err := s.cottages.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
		return
	}

	cottage.Name = req.Name
	cottage.Description = req.Description
	cottage.Address = req.Address
	cottage.Capacity = req.Capacity
	cottage.PricePerNight = req.PricePerNight

	updated, err := s.cottages.Update(ctx, cottage)
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

func (s *CottageHandler) DeactivateCottage(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "CottageHandler.DeactivateCottage")
	defer span.End()

	vars := mux.Vars(h)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return
	}

	if err := s.cottages.Deactivate(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (s *CottageHandler) MiddlewareCottageDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		request := &domain.CreateCottageRequest{}
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

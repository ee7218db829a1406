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

type PaymentHandler struct {
	logger   *log.Logger
	payments *application.PaymentService
	tracer   trace.Tracer
}

func NewPaymentHandler(l *log.Logger, payments *application.PaymentService, t trace.Tracer) *PaymentHandler {
	return &PaymentHandler{
		logger:   l,
		payments: payments,
		tracer:   t,
	}
}

func (s *PaymentHandler) CreatePayment(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "PaymentHandler.CreatePayment")
	defer span.End()

	req := h.Context().Value(KeyProduct{}).(*domain.CreatePaymentRequest)

	created, err := s.payments.CreatePayment(ctx, req)
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

func (s *PaymentHandler) GetPaymentForReservation(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "PaymentHandler.GetPaymentForReservation")
	defer span.End()

	vars := mux.Vars(h)
	reservationID, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return
	}

	payment, err := s.payments.GetPaymentForReservation(ctx, reservationID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeDomainError(rw, s.logger, err)
		return
	}

	err = payment.ToJSON(rw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Print("Unable to convert to json: ", err)
		return
	}
}

// ChangePaymentStatus is the provider callback endpoint. The transaction id
// comes from the provider and is stored alongside the status.
func (s *PaymentHandler) ChangePaymentStatus(rw http.ResponseWriter, h *http.Request) {
	ctx, span := s.tracer.Start(h.Context(), "PaymentHandler.ChangePaymentStatus")
	defer span.End()

	vars := mux.Vars(h)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(rw, "Invalid id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status        string `json:"status"`
		TransactionID string `json:"transactionId"`
	}
	if err := json.NewDecoder(h.Body).Decode(&body); err != nil {
		http.Error(rw, "Unable to decode json", http.StatusBadRequest)
		s.logger.Print(err)
		return
	}

	updated, err := s.payments.ChangePaymentStatus(ctx, id, domain.PaymentStatus(body.Status), body.TransactionID)
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

func (s *PaymentHandler) MiddlewarePaymentDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		request := &domain.CreatePaymentRequest{}
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

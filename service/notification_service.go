package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/gomail.v2"

	"github.com/AndyKimLi/cottage-booking/domain"
)

// StaffMessenger delivers one message to one Telegram chat. Implemented
// by the bot package; kept as an interface so notification logic stays
// testable without a live bot.
type StaffMessenger interface {
	SendMessage(chatID int64, text string) error
}

type SMTPConfig struct {
	Server   string
	Port     int
	Email    string
	Password string
}

// NotificationService fans booking events out to the guest (email) and
// the staff Telegram subscribers. Failures are logged and swallowed; the
// reservation state is never affected.
type NotificationService struct {
	subscribers domain.SubscriberStore
	messenger   StaffMessenger
	smtp        SMTPConfig
	cbMail      *gobreaker.CircuitBreaker
	cbMessenger *gobreaker.CircuitBreaker
	tracer      trace.Tracer
	logger      *logrus.Logger
}

func NewNotificationService(subscribers domain.SubscriberStore, messenger StaffMessenger, smtp SMTPConfig, tracer trace.Tracer, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		subscribers: subscribers,
		messenger:   messenger,
		smtp:        smtp,
		cbMail:      CircuitBreaker("notificationMail"),
		cbMessenger: CircuitBreaker("notificationMessenger"),
		tracer:      tracer,
		logger:      logger,
	}
}

func (service *NotificationService) ReservationCreated(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	ctx, span := service.tracer.Start(ctx, "NotificationService.ReservationCreated")
	defer span.End()

	message := fmt.Sprintf(
		"🆕 New reservation\n\nCottage: %s\nGuest: %s\nDates: %s - %s (%d nights)\nGuests: %d\nTotal: %d\nRequests: %s",
		cottage.Name, guestLabel(reservation),
		reservation.CheckIn.Format(domain.DateLayout), reservation.CheckOut.Format(domain.DateLayout),
		reservation.Nights(), reservation.Guests, reservation.TotalPrice,
		orNone(reservation.SpecialRequests))

	service.broadcastToStaff(ctx, message)
}

func (service *NotificationService) ReservationConfirmed(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	ctx, span := service.tracer.Start(ctx, "NotificationService.ReservationConfirmed")
	defer span.End()

	message := fmt.Sprintf(
		"🔄 Reservation status changed\n\nCottage: %s\nGuest: %s\nDates: %s - %s\nNew status: confirmed",
		cottage.Name, guestLabel(reservation),
		reservation.CheckIn.Format(domain.DateLayout), reservation.CheckOut.Format(domain.DateLayout))

	service.broadcastToStaff(ctx, message)
	service.sendConfirmationMail(ctx, reservation, cottage)
}

func (service *NotificationService) ReservationCancelled(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	ctx, span := service.tracer.Start(ctx, "NotificationService.ReservationCancelled")
	defer span.End()

	message := fmt.Sprintf(
		"❌ Reservation cancelled\n\nCottage: %s\nGuest: %s\nDates: %s - %s",
		cottage.Name, guestLabel(reservation),
		reservation.CheckIn.Format(domain.DateLayout), reservation.CheckOut.Format(domain.DateLayout))

	service.broadcastToStaff(ctx, message)
}

func (service *NotificationService) CallbackRequested(ctx context.Context, lead *domain.CallbackRequest) {
	ctx, span := service.tracer.Start(ctx, "NotificationService.CallbackRequested")
	defer span.End()

	message := fmt.Sprintf(
		"📞 Callback requested\n\nName: %s\nPhone: %s\nPreferred time: %s\nMessage: %s",
		lead.FullName(), lead.Phone, orNone(lead.PreferredTime), orNone(lead.Message))

	service.broadcastToStaff(ctx, message)
}

func (service *NotificationService) broadcastToStaff(ctx context.Context, message string) {
	subscribers, err := service.subscribers.GetActiveStaff(ctx)
	if err != nil {
		service.logger.Errorf("Failed to load staff subscribers: %v", err)
		return
	}

	sent := 0
	for _, subscriber := range subscribers {
		chatID := subscriber.ChatID
		_, breakerErr := service.cbMessenger.Execute(func() (interface{}, error) {
			return nil, service.messenger.SendMessage(chatID, message)
		})
		if breakerErr != nil {
			service.logger.Errorf("Failed to send Telegram message to chat %d: %v", chatID, breakerErr)
			continue
		}
		sent++
	}

	service.logger.Infof("Sent %d of %d staff notifications", sent, len(subscribers))
}

func (service *NotificationService) sendConfirmationMail(ctx context.Context, reservation *domain.Reservation, cottage *domain.Cottage) {
	_, span := service.tracer.Start(ctx, "NotificationService.sendConfirmationMail")
	defer span.End()

	email := reservation.EmailAddress()
	if email == "" {
		service.logger.Warnf("Reservation %s has no email address, skipping confirmation mail", reservation.ID)
		return
	}

	subject := fmt.Sprintf("✅ Reservation confirmed - %s", cottage.Name)
	body := fmt.Sprintf(
		"Your reservation at %s is confirmed.\n\nCheck-in: %s\nCheck-out: %s\nGuests: %d\nTotal price: %d\n\nWe are looking forward to your stay!",
		cottage.Name,
		reservation.CheckIn.Format(domain.DateLayout), reservation.CheckOut.Format(domain.DateLayout),
		reservation.Guests, reservation.TotalPrice)

	_, breakerErr := service.cbMail.Execute(func() (interface{}, error) {
		m := gomail.NewMessage()
		m.SetHeader("From", service.smtp.Email)
		m.SetHeader("To", email)
		m.SetHeader("Subject", subject)
		m.SetBody("text/plain", body)

		client := gomail.NewDialer(service.smtp.Server, service.smtp.Port, service.smtp.Email, service.smtp.Password)
		return nil, client.DialAndSend(m)
	})
	if breakerErr != nil {
		span.SetStatus(codes.Error, breakerErr.Error())
		service.logger.Errorf("Failed to send confirmation mail for reservation %s: %v", reservation.ID, breakerErr)
		return
	}

	service.logger.Infof("Confirmation mail for reservation %s sent to %s", reservation.ID, email)
}

func guestLabel(reservation *domain.Reservation) string {
	if reservation.GuestName != "" {
		return reservation.GuestName
	}
	if reservation.UserID != "" {
		return reservation.UserID
	}
	return "guest"
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

func CircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Printf("Circuit Breaker '%s' changed from '%s' to '%s'\n", name, from, to)
			},
		},
	)
}

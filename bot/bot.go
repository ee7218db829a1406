package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/AndyKimLi/cottage-booking/domain"
	application "github.com/AndyKimLi/cottage-booking/service"
)

// StaffBot is the long-polling Telegram bot the staff uses to watch
// bookings. It doubles as the outbound channel for notifications through
// its SendMessage method.
type StaffBot struct {
	api         *tgbotapi.BotAPI
	subscribers domain.SubscriberStore
	dashboard   *application.DashboardService
	logger      *logrus.Logger
}

func NewStaffBot(token string, subscribers domain.SubscriberStore, dashboard *application.DashboardService, logger *logrus.Logger) (*StaffBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Infof("Telegram bot authorized as %s", api.Self.UserName)

	return &StaffBot{
		api:         api,
		subscribers: subscribers,
		dashboard:   dashboard,
		logger:      logger,
	}, nil
}

// SendMessage delivers one text message to one chat.
func (b *StaffBot) SendMessage(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Run polls for updates until the context is cancelled.
func (b *StaffBot) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *StaffBot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		b.reply(chatID, "Welcome to the cottage booking bot.\nUse /subscribe to receive booking notifications.\nUse /help to see all commands.")
	case "help":
		b.reply(chatID, strings.Join([]string{
			"/stats - booking totals",
			"/bookings - recent reservations",
			"/subscribe - receive booking notifications",
			"/unsubscribe - stop receiving notifications",
		}, "\n"))
	case "subscribe":
		b.handleSubscribe(ctx, message)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, chatID)
	case "stats":
		if !b.requireStaff(ctx, chatID) {
			return
		}
		b.handleStats(ctx, chatID)
	case "bookings":
		if !b.requireStaff(ctx, chatID) {
			return
		}
		b.handleBookings(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command, see /help")
	}
}

func (b *StaffBot) handleSubscribe(ctx context.Context, message *tgbotapi.Message) {
	subscriber := &domain.TelegramSubscriber{
		ChatID:    message.Chat.ID,
		Username:  message.From.UserName,
		FirstName: message.From.FirstName,
		LastName:  message.From.LastName,
		IsActive:  true,
	}

	saved, err := b.subscribers.Upsert(ctx, subscriber)
	if err != nil {
		b.logger.Errorf("Failed to subscribe chat %d: %v", message.Chat.ID, err)
		b.reply(message.Chat.ID, "Something went wrong, please try again later.")
		return
	}

	if saved.IsStaff {
		b.reply(message.Chat.ID, "Subscribed. You will receive booking notifications.")
	} else {
		b.reply(message.Chat.ID, "Registered. An administrator has to approve your account before notifications start.")
	}
}

func (b *StaffBot) handleUnsubscribe(ctx context.Context, chatID int64) {
	if err := b.subscribers.Deactivate(ctx, chatID); err != nil {
		b.logger.Errorf("Failed to unsubscribe chat %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return
	}
	b.reply(chatID, "Unsubscribed. You will no longer receive notifications.")
}

func (b *StaffBot) handleStats(ctx context.Context, chatID int64) {
	stats, err := b.dashboard.GetStats(ctx)
	if err != nil {
		b.logger.Errorf("Failed to load stats for chat %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return
	}

	b.reply(chatID, fmt.Sprintf(
		"📊 Bookings\n\nTotal: %d\nPending: %d\nConfirmed: %d\nCancelled: %d\nCompleted: %d\nNew last week: %d",
		stats.Total, stats.Pending, stats.Confirmed, stats.Cancelled, stats.Completed, stats.LastWeek))
}

func (b *StaffBot) handleBookings(ctx context.Context, chatID int64) {
	reservations, err := b.dashboard.GetRecentReservations(ctx, 10)
	if err != nil {
		b.logger.Errorf("Failed to load recent reservations for chat %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return
	}

	if len(reservations) == 0 {
		b.reply(chatID, "No reservations yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏠 Recent reservations\n")
	for _, reservation := range reservations {
		sb.WriteString(fmt.Sprintf(
			"\n%s - %s | %s | %d guests | %s",
			reservation.CheckIn.Format(domain.DateLayout),
			reservation.CheckOut.Format(domain.DateLayout),
			reservation.Status,
			reservation.Guests,
			guestLabel(reservation)))
	}
	b.reply(chatID, sb.String())
}

// requireStaff gates the reporting commands to approved staff chats.
func (b *StaffBot) requireStaff(ctx context.Context, chatID int64) bool {
	subscriber, err := b.subscribers.GetByChatID(ctx, chatID)
	if err != nil {
		b.reply(chatID, "This command is for staff only. Use /subscribe first.")
		return false
	}
	if !subscriber.IsStaff {
		b.reply(chatID, "This command is for staff only.")
		return false
	}
	return true
}

func (b *StaffBot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		b.logger.Errorf("Failed to send Telegram reply to chat %d: %v", chatID, err)
	}
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

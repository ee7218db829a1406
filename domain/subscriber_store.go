package domain

import (
	"context"
	"time"
)

// TelegramSubscriber is a staff member who receives booking notifications
// in Telegram. Non-staff chats can register but are never notified.
type TelegramSubscriber struct {
	ChatID    int64     `json:"chatId"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	IsStaff   bool      `json:"isStaff"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type SubscriberStore interface {
	Upsert(ctx context.Context, subscriber *TelegramSubscriber) (*TelegramSubscriber, error)
	GetByChatID(ctx context.Context, chatID int64) (*TelegramSubscriber, error)
	GetActiveStaff(ctx context.Context) ([]*TelegramSubscriber, error)
	Deactivate(ctx context.Context, chatID int64) error
}

package store

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

type SubscriberPostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	tracer trace.Tracer
}

func NewSubscriberPostgresStore(pool *pgxpool.Pool, tracer trace.Tracer, logger *log.Logger) *SubscriberPostgresStore {
	return &SubscriberPostgresStore{
		pool:   pool,
		logger: logger,
		tracer: tracer,
	}
}

func (ss *SubscriberPostgresStore) CreateTables(ctx context.Context) {
	_, err := ss.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS telegram_subscribers (
			chat_id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		ss.logger.Println(err)
	}
}

const subscriberColumns = `chat_id, username, first_name, last_name, is_staff,
	is_active, created_at`

// Upsert registers a chat or re-activates it. Staff status is never
// granted here; an administrator flips is_staff directly.
func (ss *SubscriberPostgresStore) Upsert(ctx context.Context, subscriber *domain.TelegramSubscriber) (*domain.TelegramSubscriber, error) {
	ctx, span := ss.tracer.Start(ctx, "SubscriberPostgresStore.Upsert")
	defer span.End()

	row := ss.pool.QueryRow(ctx,
		`INSERT INTO telegram_subscribers (chat_id, username, first_name, last_name, is_staff, is_active)
		VALUES ($1, $2, $3, $4, FALSE, TRUE)
		ON CONFLICT (chat_id) DO UPDATE
			SET username = EXCLUDED.username,
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				is_active = TRUE
		RETURNING `+subscriberColumns,
		subscriber.ChatID, subscriber.Username, subscriber.FirstName, subscriber.LastName)

	upserted, err := scanSubscriber(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		ss.logger.Println(err)
		return nil, err
	}

	return upserted, nil
}

func (ss *SubscriberPostgresStore) GetByChatID(ctx context.Context, chatID int64) (*domain.TelegramSubscriber, error) {
	ctx, span := ss.tracer.Start(ctx, "SubscriberPostgresStore.GetByChatID")
	defer span.End()

	row := ss.pool.QueryRow(ctx,
		`SELECT `+subscriberColumns+` FROM telegram_subscribers WHERE chat_id = $1`, chatID)

	subscriber, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscriber not found")
			return nil, domain.NotFoundError{Resource: "subscriber", ID: ""}
		}
		span.SetStatus(codes.Error, err.Error())
		ss.logger.Println(err)
		return nil, err
	}

	return subscriber, nil
}

func (ss *SubscriberPostgresStore) GetActiveStaff(ctx context.Context) ([]*domain.TelegramSubscriber, error) {
	ctx, span := ss.tracer.Start(ctx, "SubscriberPostgresStore.GetActiveStaff")
	defer span.End()

	rows, err := ss.pool.Query(ctx,
		`SELECT `+subscriberColumns+`
		FROM telegram_subscribers
		WHERE is_active AND is_staff`)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		ss.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	var subscribers []*domain.TelegramSubscriber
	for rows.Next() {
		subscriber, err := scanSubscriber(rows)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			ss.logger.Println(err)
			return nil, err
		}
		subscribers = append(subscribers, subscriber)
	}
	if err := rows.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		ss.logger.Println(err)
		return nil, err
	}

	return subscribers, nil
}

func (ss *SubscriberPostgresStore) Deactivate(ctx context.Context, chatID int64) error {
	ctx, span := ss.tracer.Start(ctx, "SubscriberPostgresStore.Deactivate")
	defer span.End()

	tag, err := ss.pool.Exec(ctx,
		`UPDATE telegram_subscribers SET is_active = FALSE WHERE chat_id = $1`, chatID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		ss.logger.Println(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "subscriber", ID: ""}
	}

	return nil
}

func scanSubscriber(row pgx.Row) (*domain.TelegramSubscriber, error) {
	var s domain.TelegramSubscriber
	err := row.Scan(
		&s.ChatID, &s.Username, &s.FirstName, &s.LastName, &s.IsStaff,
		&s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

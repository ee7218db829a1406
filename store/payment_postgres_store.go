package store

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

type PaymentPostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	tracer trace.Tracer
}

func NewPaymentPostgresStore(pool *pgxpool.Pool, tracer trace.Tracer, logger *log.Logger) *PaymentPostgresStore {
	return &PaymentPostgresStore{
		pool:   pool,
		logger: logger,
		tracer: tracer,
	}
}

func (sp *PaymentPostgresStore) CreateTables(ctx context.Context) {
	_, err := sp.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			reservation_id UUID NOT NULL UNIQUE,
			amount BIGINT NOT NULL,
			method TEXT NOT NULL,
			transaction_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		sp.logger.Println(err)
	}
}

const paymentColumns = `id, reservation_id, amount, method, transaction_id,
	status, created_at, updated_at`

func (sp *PaymentPostgresStore) Insert(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	ctx, span := sp.tracer.Start(ctx, "PaymentPostgresStore.Insert")
	defer span.End()

	payment.ID = uuid.New()

	row := sp.pool.QueryRow(ctx,
		`INSERT INTO payments (id, reservation_id, amount, method, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING `+paymentColumns,
		payment.ID, payment.ReservationID, payment.Amount, payment.Method)

	created, err := scanPayment(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sp.logger.Println(err)
		return nil, err
	}

	return created, nil
}

func (sp *PaymentPostgresStore) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	ctx, span := sp.tracer.Start(ctx, "PaymentPostgresStore.GetByReservation")
	defer span.End()

	row := sp.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reservation_id = $1`, reservationID)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Payment not found")
			return nil, domain.NotFoundError{Resource: "payment", ID: reservationID.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sp.logger.Println(err)
		return nil, err
	}

	return payment, nil
}

func (sp *PaymentPostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, transactionID string) (*domain.Payment, error) {
	ctx, span := sp.tracer.Start(ctx, "PaymentPostgresStore.UpdateStatus")
	defer span.End()

	row := sp.pool.QueryRow(ctx,
		`UPDATE payments
		SET status = $2,
			transaction_id = CASE WHEN $3 <> '' THEN $3 ELSE transaction_id END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+paymentColumns,
		id, status, transactionID)

	updated, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Payment not found")
			return nil, domain.NotFoundError{Resource: "payment", ID: id.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sp.logger.Println(err)
		return nil, err
	}

	return updated, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.ReservationID, &p.Amount, &p.Method, &p.TransactionID,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

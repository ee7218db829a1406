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

type LeadPostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	tracer trace.Tracer
}

func NewLeadPostgresStore(pool *pgxpool.Pool, tracer trace.Tracer, logger *log.Logger) *LeadPostgresStore {
	return &LeadPostgresStore{
		pool:   pool,
		logger: logger,
		tracer: tracer,
	}
}

func (sl *LeadPostgresStore) CreateTables(ctx context.Context) {
	_, err := sl.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS callback_requests (
			id UUID PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			preferred_time TEXT NOT NULL DEFAULT '',
			cottage_id UUID,
			status TEXT NOT NULL DEFAULT 'new',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ
		)`)
	if err != nil {
		sl.logger.Println(err)
	}
}

const leadColumns = `id, first_name, last_name, phone, email, message,
	preferred_time, cottage_id, status, created_at, updated_at, processed_at`

func (sl *LeadPostgresStore) Insert(ctx context.Context, lead *domain.CallbackRequest) (*domain.CallbackRequest, error) {
	ctx, span := sl.tracer.Start(ctx, "LeadPostgresStore.Insert")
	defer span.End()

	lead.ID = uuid.New()

	row := sl.pool.QueryRow(ctx,
		`INSERT INTO callback_requests
			(id, first_name, last_name, phone, email, message, preferred_time, cottage_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'new')
		RETURNING `+leadColumns,
		lead.ID, lead.FirstName, lead.LastName, lead.Phone, lead.Email,
		lead.Message, lead.PreferredTime, lead.CottageID)

	created, err := scanLead(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sl.logger.Println(err)
		return nil, err
	}

	return created, nil
}

func (sl *LeadPostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CallbackRequest, error) {
	ctx, span := sl.tracer.Start(ctx, "LeadPostgresStore.GetByID")
	defer span.End()

	row := sl.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM callback_requests WHERE id = $1`, id)

	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Callback request not found")
			return nil, domain.NotFoundError{Resource: "callback request", ID: id.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sl.logger.Println(err)
		return nil, err
	}

	return lead, nil
}

func (sl *LeadPostgresStore) GetAll(ctx context.Context) ([]*domain.CallbackRequest, error) {
	ctx, span := sl.tracer.Start(ctx, "LeadPostgresStore.GetAll")
	defer span.End()

	rows, err := sl.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM callback_requests ORDER BY created_at DESC`)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sl.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	var leads []*domain.CallbackRequest
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			sl.logger.Println(err)
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		sl.logger.Println(err)
		return nil, err
	}

	return leads, nil
}

func (sl *LeadPostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.CallbackRequest, error) {
	ctx, span := sl.tracer.Start(ctx, "LeadPostgresStore.UpdateStatus")
	defer span.End()

	row := sl.pool.QueryRow(ctx,
		`UPDATE callback_requests
		SET status = $2,
			updated_at = now(),
			processed_at = CASE WHEN $2 IN ('completed', 'cancelled') THEN now() ELSE processed_at END
		WHERE id = $1
		RETURNING `+leadColumns,
		id, status)

	updated, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Callback request not found")
			return nil, domain.NotFoundError{Resource: "callback request", ID: id.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sl.logger.Println(err)
		return nil, err
	}

	return updated, nil
}

func scanLead(row pgx.Row) (*domain.CallbackRequest, error) {
	var l domain.CallbackRequest
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Phone, &l.Email, &l.Message,
		&l.PreferredTime, &l.CottageID, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		&l.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

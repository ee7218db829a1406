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

type CottagePostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	tracer trace.Tracer
}

func NewCottagePostgresStore(pool *pgxpool.Pool, tracer trace.Tracer, logger *log.Logger) *CottagePostgresStore {
	return &CottagePostgresStore{
		pool:   pool,
		logger: logger,
		tracer: tracer,
	}
}

func (sc *CottagePostgresStore) CreateTables(ctx context.Context) {
	_, err := sc.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS cottages (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			capacity INT NOT NULL,
			price_per_night BIGINT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		sc.logger.Println(err)
	}
}

const cottageColumns = `id, name, description, address, capacity,
	price_per_night, is_active, created_at, updated_at`

func (sc *CottagePostgresStore) Insert(ctx context.Context, cottage *domain.Cottage) (*domain.Cottage, error) {
	ctx, span := sc.tracer.Start(ctx, "CottagePostgresStore.Insert")
	defer span.End()

	cottage.ID = uuid.New()

	row := sc.pool.QueryRow(ctx,
		`INSERT INTO cottages (id, name, description, address, capacity, price_per_night, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING `+cottageColumns,
		cottage.ID, cottage.Name, cottage.Description, cottage.Address,
		cottage.Capacity, cottage.PricePerNight)

	created, err := scanCottage(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sc.logger.Println(err)
		return nil, err
	}

	return created, nil
}

func (sc *CottagePostgresStore) Update(ctx context.Context, cottage *domain.Cottage) (*domain.Cottage, error) {
	ctx, span := sc.tracer.Start(ctx, "CottagePostgresStore.Update")
	defer span.End()

	row := sc.pool.QueryRow(ctx,
		`UPDATE cottages
		SET name = $2, description = $3, address = $4, capacity = $5,
			price_per_night = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+cottageColumns,
		cottage.ID, cottage.Name, cottage.Description, cottage.Address,
		cottage.Capacity, cottage.PricePerNight)

	updated, err := scanCottage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Cottage not found")
			return nil, domain.NotFoundError{Resource: "cottage", ID: cottage.ID.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sc.logger.Println(err)
		return nil, err
	}

	return updated, nil
}

func (sc *CottagePostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cottage, error) {
	ctx, span := sc.tracer.Start(ctx, "CottagePostgresStore.GetByID")
	defer span.End()

	row := sc.pool.QueryRow(ctx,
		`SELECT `+cottageColumns+` FROM cottages WHERE id = $1`, id)

	cottage, err := scanCottage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Cottage not found")
			return nil, domain.NotFoundError{Resource: "cottage", ID: id.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sc.logger.Println(err)
		return nil, err
	}

	return cottage, nil
}

func (sc *CottagePostgresStore) GetAll(ctx context.Context, activeOnly bool) ([]*domain.Cottage, error) {
	ctx, span := sc.tracer.Start(ctx, "CottagePostgresStore.GetAll")
	defer span.End()

	query := `SELECT ` + cottageColumns + ` FROM cottages`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := sc.pool.Query(ctx, query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sc.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	var cottages []*domain.Cottage
	for rows.Next() {
		cottage, err := scanCottage(rows)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			sc.logger.Println(err)
			return nil, err
		}
		cottages = append(cottages, cottage)
	}
	if err := rows.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		sc.logger.Println(err)
		return nil, err
	}

	return cottages, nil
}

func (sc *CottagePostgresStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := sc.tracer.Start(ctx, "CottagePostgresStore.Deactivate")
	defer span.End()

	tag, err := sc.pool.Exec(ctx,
		`UPDATE cottages SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sc.logger.Println(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Cottage not found")
		return domain.NotFoundError{Resource: "cottage", ID: id.String()}
	}

	return nil
}

func scanCottage(row pgx.Row) (*domain.Cottage, error) {
	var c domain.Cottage
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Address, &c.Capacity,
		&c.PricePerNight, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

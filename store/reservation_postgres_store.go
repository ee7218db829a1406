package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

// exclusionViolation is the Postgres error code raised by the gist
// exclusion constraint when two active reservations would overlap.
const exclusionViolation = "23P01"

type ReservationPostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	tracer trace.Tracer
}

func NewReservationPostgresStore(pool *pgxpool.Pool, tracer trace.Tracer, logger *log.Logger) *ReservationPostgresStore {
	return &ReservationPostgresStore{
		pool:   pool,
		logger: logger,
		tracer: tracer,
	}
}

// CreateTables prepares the schema. The exclusion constraint on
// (cottage_id, stay range) for active statuses is the database-level
// defense against the check-then-write race between two concurrent
// bookings of the same dates.
func (sr *ReservationPostgresStore) CreateTables(ctx context.Context) {
	_, err := sr.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS btree_gist`)
	if err != nil {
		sr.logger.Println(err)
	}

	_, err = sr.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS reservations (
			id UUID PRIMARY KEY,
			cottage_id UUID NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			guest_name TEXT NOT NULL DEFAULT '',
			guest_email TEXT NOT NULL DEFAULT '',
			check_in DATE NOT NULL,
			check_out DATE NOT NULL,
			guests INT NOT NULL,
			total_price BIGINT NOT NULL,
			status TEXT NOT NULL,
			special_requests TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (check_in < check_out),
			CONSTRAINT reservations_no_overlap EXCLUDE USING gist (
				cottage_id WITH =,
				daterange(check_in, check_out) WITH &&
			) WHERE (status IN ('pending', 'confirmed'))
		)`)
	if err != nil {
		sr.logger.Println(err)
	}

	_, err = sr.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS reservations_cottage_status_idx
			ON reservations (cottage_id, status)`)
	if err != nil {
		sr.logger.Println(err)
	}
}

const reservationColumns = `id, cottage_id, user_id, guest_name, guest_email,
	check_in, check_out, guests, total_price, status, special_requests,
	created_at, updated_at`

func (sr *ReservationPostgresStore) Insert(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.Insert")
	defer span.End()

	reservation.ID = uuid.New()

	row := sr.pool.QueryRow(ctx,
		`INSERT INTO reservations
			(id, cottage_id, user_id, guest_name, guest_email, check_in, check_out,
			 guests, total_price, status, special_requests)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+reservationColumns,
		reservation.ID, reservation.CottageID, reservation.UserID,
		reservation.GuestName, reservation.GuestEmail,
		reservation.CheckIn, reservation.CheckOut, reservation.Guests,
		reservation.TotalPrice, reservation.Status, reservation.SpecialRequests)

	created, err := scanReservation(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, asDomainError(err)
	}

	return created, nil
}

func (sr *ReservationPostgresStore) Update(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.Update")
	defer span.End()

	row := sr.pool.QueryRow(ctx,
		`UPDATE reservations
		SET check_in = $2, check_out = $3, guests = $4, total_price = $5,
			special_requests = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+reservationColumns,
		reservation.ID, reservation.CheckIn, reservation.CheckOut,
		reservation.Guests, reservation.TotalPrice, reservation.SpecialRequests)

	updated, err := scanReservation(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, asDomainError(err)
	}

	return updated, nil
}

func (sr *ReservationPostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (*domain.Reservation, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.UpdateStatus")
	defer span.End()

	row := sr.pool.QueryRow(ctx,
		`UPDATE reservations
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+reservationColumns,
		id, status)

	updated, err := scanReservation(row)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, asDomainError(err)
	}

	return updated, nil
}

func (sr *ReservationPostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.GetByID")
	defer span.End()

	row := sr.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)

	reservation, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Reservation not found")
			return nil, domain.NotFoundError{Resource: "reservation", ID: id.String()}
		}
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}

	return reservation, nil
}

func (sr *ReservationPostgresStore) GetByUser(ctx context.Context, userID string) (domain.Reservations, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.GetByUser")
	defer span.End()

	rows, err := sr.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	return scanReservations(rows)
}

func (sr *ReservationPostgresStore) GetActiveForCottage(ctx context.Context, cottageID uuid.UUID, from, until time.Time, exclude *uuid.UUID) (domain.Reservations, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.GetActiveForCottage")
	defer span.End()

	// Half-open overlap test: an existing stay conflicts with the candidate
	// range iff check_in < until AND check_out > from.
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE cottage_id = $1
			AND status IN ('pending', 'confirmed')
			AND check_in < $2
			AND check_out > $3`
	args := []interface{}{cottageID, until, from}

	if exclude != nil {
		query += ` AND id <> $4`
		args = append(args, *exclude)
	}

	rows, err := sr.pool.Query(ctx, query, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	return scanReservations(rows)
}

func (sr *ReservationPostgresStore) GetElapsedConfirmed(ctx context.Context, today time.Time) (domain.Reservations, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.GetElapsedConfirmed")
	defer span.End()

	rows, err := sr.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'confirmed' AND check_out <= $1`, today)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	return scanReservations(rows)
}

func (sr *ReservationPostgresStore) GetRecent(ctx context.Context, limit int) (domain.Reservations, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.GetRecent")
	defer span.End()

	rows, err := sr.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		FROM reservations
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	return scanReservations(rows)
}

func (sr *ReservationPostgresStore) Search(ctx context.Context, filter domain.SearchFilter) (domain.Reservations, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.Search")
	defer span.End()

	query, args, err := BuildSearchQuery(filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}

	rows, err := sr.pool.Query(ctx, query, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	return scanReservations(rows)
}

func (sr *ReservationPostgresStore) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.CountByStatus")
	defer span.End()

	rows, err := sr.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.BookingStatus]int)
	for rows.Next() {
		var status domain.BookingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			span.SetStatus(codes.Error, err.Error())
			sr.logger.Println(err)
			return nil, err
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return nil, err
	}

	return counts, nil
}

func (sr *ReservationPostgresStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	ctx, span := sr.tracer.Start(ctx, "ReservationPostgresStore.CountCreatedSince")
	defer span.End()

	var count int
	err := sr.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		sr.logger.Println(err)
		return 0, err
	}

	return count, nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	err := row.Scan(
		&r.ID, &r.CottageID, &r.UserID, &r.GuestName, &r.GuestEmail,
		&r.CheckIn, &r.CheckOut, &r.Guests, &r.TotalPrice, &r.Status,
		&r.SpecialRequests, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanReservations(rows pgx.Rows) (domain.Reservations, error) {
	var reservations domain.Reservations
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// asDomainError maps an exclusion-constraint violation onto the conflict
// error the workflow reports for overlapping dates; everything else
// propagates unchanged.
func asDomainError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return domain.ConflictError{Reason: domain.DatesUnavailableError}
	}
	return err
}

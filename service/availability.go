package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

// DefaultHorizonDays is how far ahead the occupied-dates calendar looks,
// and the only horizon whose result is cached.
const DefaultHorizonDays = 365

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AvailabilityChecker decides whether a candidate date range is free and
// expands active reservations into per-night occupied dates for calendar
// rendering. It is read-only with respect to reservations.
type AvailabilityChecker struct {
	reservations domain.ReservationStore
	cache        domain.AvailabilityCache
	clock        domain.Clock
	tracer       trace.Tracer
	logger       *logrus.Logger
}

func NewAvailabilityChecker(reservations domain.ReservationStore, cache domain.AvailabilityCache, clock domain.Clock, tracer trace.Tracer, logger *logrus.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{
		reservations: reservations,
		cache:        cache,
		clock:        clock,
		tracer:       tracer,
		logger:       logger,
	}
}

// IsAvailable reports whether [checkIn, checkOut) is free of active
// reservations on the cottage. Ranges that only touch at a boundary do
// not conflict, so back-to-back stays are allowed.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, cottageID uuid.UUID, checkIn, checkOut time.Time, exclude *uuid.UUID) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "AvailabilityChecker.IsAvailable")
	defer span.End()

	if !checkIn.Before(checkOut) {
		span.SetStatus(codes.Error, domain.DateOrderError)
		return false, domain.ValidationError{Field: "checkOut", Reason: domain.DateOrderError}
	}

	conflicting, err := a.reservations.GetActiveForCottage(ctx, cottageID, checkIn, checkOut, exclude)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	return len(conflicting) == 0, nil
}

// ListOccupiedDates expands every active reservation within the horizon
// into individual nights. A stay over [checkIn, checkOut) contributes the
// dates checkIn .. checkOut-1; the departure date stays free.
func (a *AvailabilityChecker) ListOccupiedDates(ctx context.Context, cottageID uuid.UUID, horizonDays int, exclude *uuid.UUID) ([]time.Time, error) {
	ctx, span := a.tracer.Start(ctx, "AvailabilityChecker.ListOccupiedDates")
	defer span.End()

	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	cacheable := exclude == nil && horizonDays == DefaultHorizonDays
	key := occupiedDatesKey(cottageID)

	if cacheable {
		if cached, err := a.cache.GetCachedValue(ctx, key); err == nil {
			dates, err := decodeDates(cached)
			if err == nil {
				return dates, nil
			}
			a.logger.Warnf("Discarding malformed occupied-dates cache entry for cottage %s: %v", cottageID, err)
		}
	}

	from := a.clock.Today()
	until := from.AddDate(0, 0, horizonDays)

	reservations, err := a.reservations.GetActiveForCottage(ctx, cottageID, from, until, exclude)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, reservation := range reservations {
		night := reservation.CheckIn
		if night.Before(from) {
			night = from
		}
		for night.Before(reservation.CheckOut) && night.Before(until) {
			if _, ok := seen[night]; !ok {
				seen[night] = struct{}{}
				dates = append(dates, night)
			}
			night = night.AddDate(0, 0, 1)
		}
	}

	if cacheable {
		if encoded, err := encodeDates(dates); err == nil {
			if err := a.cache.PostCacheData(ctx, key, encoded); err != nil {
				a.logger.Warnf("Failed to cache occupied dates for cottage %s: %v", cottageID, err)
			}
		}
	}

	return dates, nil
}

// InvalidateCottage drops the cached calendar after any reservation write.
func (a *AvailabilityChecker) InvalidateCottage(ctx context.Context, cottageID uuid.UUID) {
	if err := a.cache.DelCachedValue(ctx, occupiedDatesKey(cottageID)); err != nil {
		a.logger.Warnf("Failed to invalidate occupied dates for cottage %s: %v", cottageID, err)
	}
}

func occupiedDatesKey(cottageID uuid.UUID) string {
	return fmt.Sprintf("occupied:%s", cottageID)
}

func encodeDates(dates []time.Time) (string, error) {
	formatted := make([]string, 0, len(dates))
	for _, date := range dates {
		formatted = append(formatted, date.Format(domain.DateLayout))
	}
	encoded, err := json.Marshal(formatted)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeDates(value string) ([]time.Time, error) {
	var formatted []string
	if err := json.Unmarshal([]byte(value), &formatted); err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(formatted))
	for _, raw := range formatted {
		date, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, nil
}

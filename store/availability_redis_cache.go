package store

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/domain"
)

const occupiedDatesTTL = 10 * time.Minute

type AvailabilityRedisCache struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewAvailabilityRedisCache(client *redis.Client, tracer trace.Tracer) domain.AvailabilityCache {
	return &AvailabilityRedisCache{
		client: client,
		tracer: tracer,
	}
}

func (a *AvailabilityRedisCache) PostCacheData(ctx context.Context, key string, value string) error {
	ctx, span := a.tracer.Start(ctx, "AvailabilityRedisCache.PostCacheData")
	defer span.End()

	result := a.client.Set(key, value, occupiedDatesTTL)
	if result.Err() != nil {
		span.SetStatus(codes.Error, "Error posting cached value")
		log.Printf("redis set error: %s", result.Err())
		return result.Err()
	}

	return nil
}

func (a *AvailabilityRedisCache) GetCachedValue(ctx context.Context, key string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "AvailabilityRedisCache.GetCachedValue")
	defer span.End()

	result := a.client.Get(key)
	value, err := result.Result()
	if err != nil {
		span.SetStatus(codes.Error, "Error getting cached value")
		return "", err
	}
	return value, nil
}

func (a *AvailabilityRedisCache) DelCachedValue(ctx context.Context, key string) error {
	ctx, span := a.tracer.Start(ctx, "AvailabilityRedisCache.DelCachedValue")
	defer span.End()

	result := a.client.Del(key)
	if result.Err() != nil {
		span.SetStatus(codes.Error, "Error deleting cached value")
		log.Println(result.Err())
		return result.Err()
	}

	return nil
}

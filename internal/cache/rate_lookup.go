package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gstengine/internal/observability/metrics"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"go.uber.org/zap"
)

const DefaultRateTTL = 5 * time.Minute

const rateKeyPrefix = "gstengine:rates:"

// RedisRateLookup shares candidate rate sets across engine replicas. Redis
// failures degrade to the wrapped lookup; they never fail a computation.
type RedisRateLookup struct {
	next    taxratedomain.RateLookup
	client  *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewRedisRateLookup(next taxratedomain.RateLookup, client *redis.Client, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *RedisRateLookup {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRateLookup{
		next:    next,
		client:  client,
		ttl:     ttl,
		log:     log.Named("cache.rates"),
		metrics: m,
	}
}

func (c *RedisRateLookup) FindCandidates(ctx context.Context, classificationCode string, component taxratedomain.ComponentType) ([]taxratedomain.TaxRateRecord, error) {
	key := RateKey(classificationCode, component)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []taxratedomain.TaxRateRecord
		if jerr := json.Unmarshal(raw, &records); jerr == nil {
			c.metrics.RecordCacheLookup(ctx, "hit")
			return records, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.String("key", key))
		c.metrics.RecordCacheLookup(ctx, "corrupt")
	case errors.Is(err, redis.Nil):
		c.metrics.RecordCacheLookup(ctx, "miss")
	default:
		c.log.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
		c.metrics.RecordCacheLookup(ctx, "error")
	}

	records, err := c.next.FindCandidates(ctx, classificationCode, component)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return records, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return records, nil
}

// Invalidate drops the cached candidates for one code and component, used after
// a version is created or closed.
func (c *RedisRateLookup) Invalidate(ctx context.Context, classificationCode string, component taxratedomain.ComponentType) error {
	return c.client.Del(ctx, RateKey(classificationCode, component)).Err()
}

func RateKey(classificationCode string, component taxratedomain.ComponentType) string {
	return rateKeyPrefix + strings.TrimSpace(classificationCode) + ":" + strings.ToUpper(string(component))
}

// NoopRateCache stands in for RedisRateLookup when no shared cache is configured.
type NoopRateCache struct{}

func (NoopRateCache) Invalidate(context.Context, string, taxratedomain.ComponentType) error {
	return nil
}

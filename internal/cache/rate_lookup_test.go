package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gstengine/internal/observability/metrics"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingLookup struct {
	calls   int
	records []taxratedomain.TaxRateRecord
}

func (l *countingLookup) FindCandidates(context.Context, string, taxratedomain.ComponentType) ([]taxratedomain.TaxRateRecord, error) {
	l.calls++
	return l.records, nil
}

func TestRateKey(t *testing.T) {
	assert.Equal(t, "gstengine:rates:2523:IGST", RateKey(" 2523 ", "igst"))
}

func TestRedisRateLookupDegradesWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	next := &countingLookup{records: []taxratedomain.TaxRateRecord{{
		ClassificationCode: "2523",
		ComponentType:      taxratedomain.ComponentIGST,
		RatePercentage:     decimal.NewFromInt(28),
	}}}
	lookup := NewRedisRateLookup(next, client, time.Minute, zap.NewNop(), metrics.NewNoop())

	records, err := lookup.FindCandidates(context.Background(), "2523", taxratedomain.ComponentIGST)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, decimal.NewFromInt(28).Equal(records[0].RatePercentage))
	assert.Equal(t, 1, next.calls)
}

func TestRateCacheInvalidate(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	var shared taxratedomain.RateCache = NewRedisRateLookup(&countingLookup{}, client, time.Minute, zap.NewNop(), metrics.NewNoop())
	assert.Error(t, shared.Invalidate(context.Background(), "2523", taxratedomain.ComponentIGST))

	var noop taxratedomain.RateCache = NoopRateCache{}
	assert.NoError(t, noop.Invalidate(context.Background(), "2523", taxratedomain.ComponentIGST))
}

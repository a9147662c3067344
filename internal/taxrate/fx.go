package taxrate

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gstengine/internal/cache"
	"github.com/smallbiznis/gstengine/internal/observability/metrics"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"github.com/smallbiznis/gstengine/internal/taxrate/repository"
	"github.com/smallbiznis/gstengine/internal/taxrate/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("taxrate.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(provideRateLookup),
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewService),
)

type lookupParams struct {
	fx.In

	Repo    taxratedomain.Repository
	Redis   *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

type lookupResult struct {
	fx.Out

	Lookup taxratedomain.RateLookup
	Cache  taxratedomain.RateCache
}

// provideRateLookup fronts the repository with the shared redis cache when one
// is configured. The same cache is handed to the write path for invalidation.
func provideRateLookup(p lookupParams) lookupResult {
	if p.Redis == nil {
		return lookupResult{Lookup: p.Repo, Cache: cache.NoopRateCache{}}
	}
	shared := cache.NewRedisRateLookup(p.Repo, p.Redis, cache.DefaultRateTTL, p.Log, p.Metrics)
	return lookupResult{Lookup: shared, Cache: shared}
}

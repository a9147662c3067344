package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RateLookup is the read path the resolver depends on. Implementations return
// every record for the code and component; filtering is the resolver's job.
type RateLookup interface {
	FindCandidates(ctx context.Context, classificationCode string, component ComponentType) ([]TaxRateRecord, error)
}

type Repository interface {
	RateLookup
	Create(ctx context.Context, record *TaxRateRecord) error
	FindByID(ctx context.Context, id snowflake.ID) (*TaxRateRecord, error)
	CloseVersion(ctx context.Context, id snowflake.ID, effectiveTo time.Time) error
}

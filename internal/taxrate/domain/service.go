package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ResolveRequest struct {
	ClassificationCode string
	ComponentType      ComponentType
	BusinessType       BusinessType
	BuyerStateCode     string
	AsOf               time.Time

	// Zones pins the zone directory for this lookup. Nil uses the resolver's current policy.
	Zones ZoneDirectory
}

// Resolver selects the single applicable record, or nil when none is configured.
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (*TaxRateRecord, error)
}

// RateCache drops cached candidate sets after a write.
type RateCache interface {
	Invalidate(ctx context.Context, classificationCode string, component ComponentType) error
}

type CreateRateRequest struct {
	ClassificationCode            string
	ComponentType                 ComponentType
	BusinessType                  BusinessType
	Zone                          Zone
	EffectiveFrom                 time.Time
	EffectiveTo                   *time.Time
	RatePercentage                decimal.Decimal
	FixedAmountPerUnit            decimal.NullDecimal
	MinimumAmount                 decimal.NullDecimal
	MaximumAmount                 decimal.NullDecimal
	IsReverseChargeApplicable     bool
	IsCompositionSchemeApplicable bool
	NotificationNumber            string
	Conditions                    map[string]any
}

// Service manages rate versions. Every write drops the cached candidates of
// the code and component it touched.
type Service interface {
	CreateRate(ctx context.Context, req CreateRateRequest) (*TaxRateRecord, error)
	CloseRate(ctx context.Context, id snowflake.ID, effectiveTo time.Time) (*TaxRateRecord, error)
}

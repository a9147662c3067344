package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/gstengine/internal/config"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ResolverParams struct {
	fx.In

	Log    *zap.Logger
	Lookup taxratedomain.RateLookup
	Policy config.PolicyProvider
}

type resolver struct {
	log    *zap.Logger
	lookup taxratedomain.RateLookup
	policy config.PolicyProvider
}

func NewResolver(p ResolverParams) taxratedomain.Resolver {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &resolver{
		log:    log.Named("taxrate.resolver"),
		lookup: p.Lookup,
		policy: p.Policy,
	}
}

func (r *resolver) Resolve(ctx context.Context, req taxratedomain.ResolveRequest) (*taxratedomain.TaxRateRecord, error) {
	code := strings.TrimSpace(req.ClassificationCode)
	if code == "" {
		return nil, taxratedomain.ErrInvalidClassificationCode
	}
	if !req.ComponentType.Valid() {
		return nil, taxratedomain.ErrInvalidComponentType
	}
	if !req.BusinessType.Valid() {
		return nil, taxratedomain.ErrInvalidBusinessType
	}

	candidates, err := r.lookup.FindCandidates(ctx, code, req.ComponentType)
	if err != nil {
		return nil, fmt.Errorf("load rate candidates: %w", err)
	}

	zones := req.Zones
	if zones == nil {
		zones = taxratedomain.NewZoneDirectory(r.policy.Get().Zones)
	}

	selected := Select(candidates, req, zones)
	if selected == nil {
		r.log.Debug("no rate resolved",
			zap.String("classification_code", code),
			zap.String("component", string(req.ComponentType)),
			zap.String("business_type", string(req.BusinessType)),
			zap.String("buyer_state", req.BuyerStateCode),
			zap.Time("as_of", req.AsOf),
		)
		return nil, nil
	}

	out := *selected
	return &out, nil
}

// Select applies the selection policy to an in-memory candidate set:
// code/component match, validity at AsOf, zone coverage, exact business type
// (or B2B standing in for B2C), then most specific zone, then latest
// EffectiveFrom. Remaining ties go to the higher version, then the lower ID.
func Select(candidates []taxratedomain.TaxRateRecord, req taxratedomain.ResolveRequest, zones taxratedomain.ZoneDirectory) *taxratedomain.TaxRateRecord {
	code := strings.TrimSpace(req.ClassificationCode)

	eligible := make([]*taxratedomain.TaxRateRecord, 0, len(candidates))
	for i := range candidates {
		rec := &candidates[i]
		if rec.ClassificationCode != code || rec.ComponentType != req.ComponentType {
			continue
		}
		if !rec.IsValidFor(req.AsOf) {
			continue
		}
		if !rec.AppliesToZone(zones, req.BuyerStateCode) {
			continue
		}
		if !rec.AppliesToBusinessType(req.BusinessType) {
			continue
		}
		eligible = append(eligible, rec)
	}

	exact := eligible[:0:0]
	for _, rec := range eligible {
		if rec.BusinessType == req.BusinessType {
			exact = append(exact, rec)
		}
	}
	if len(exact) > 0 {
		eligible = exact
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if sa, sb := zoneSpecificity(a.Zone), zoneSpecificity(b.Zone); sa != sb {
			return sa > sb
		}
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.After(b.EffectiveFrom)
		}
		if a.VersionNumber != b.VersionNumber {
			return a.VersionNumber > b.VersionNumber
		}
		return a.ID < b.ID
	})
	return eligible[0]
}

func zoneSpecificity(z taxratedomain.Zone) int {
	if z.IsNationwide() {
		return 0
	}
	return 1
}

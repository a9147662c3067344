package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gstengine/internal/config"
	gstdomain "github.com/smallbiznis/gstengine/internal/gst/domain"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"go.uber.org/zap"
)

const (
	compositionName = "GST (Composition)"
	cessName        = "Cess"
	perUnitCessName = "Cess (Per Unit)"
)

var two = decimal.NewFromInt(2)

// computation holds the state of one ComputeTax call.
type computation struct {
	engine   *engine
	req      gstdomain.ComputeRequest
	policy   config.GSTPolicy
	zones    taxratedomain.ZoneDirectory
	scale    int32
	strategy gstdomain.RateResolutionStrategy
	taxable  decimal.Decimal
	out      *gstdomain.Computation
}

// rateBusinessType is the business type used for regular rate lookups;
// composition dealers are charged the B2B schedule unless a composition rate exists.
func (c *computation) rateBusinessType() taxratedomain.BusinessType {
	if c.req.BusinessType == taxratedomain.BusinessComposition {
		return taxratedomain.BusinessB2B
	}
	return c.req.BusinessType
}

func (c *computation) resolve(ctx context.Context, component taxratedomain.ComponentType, business taxratedomain.BusinessType) (*taxratedomain.TaxRateRecord, error) {
	rec, err := c.engine.resolver.Resolve(ctx, taxratedomain.ResolveRequest{
		ClassificationCode: c.req.ClassificationCode,
		ComponentType:      component,
		BusinessType:       business,
		BuyerStateCode:     c.req.BuyerStateCode,
		AsOf:               c.req.AsOf,
		Zones:              c.zones,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %s rate: %w", component, err)
	}

	outcome := "miss"
	if rec != nil {
		outcome = "hit"
	}
	c.engine.metrics.RecordResolution(ctx, string(component), outcome)
	if rec == nil {
		return nil, nil
	}

	c.engine.log.Debug("rate resolved",
		zap.String("classification_code", c.req.ClassificationCode),
		zap.String("component", string(component)),
		zap.String("business_type", string(business)),
		zap.Stringer("rate_id", rec.ID),
		zap.String("rate", rec.RatePercentage.String()),
	)
	if rec.IsReverseChargeApplicable {
		c.out.ReverseChargeAdvisory = true
	}
	if c.out.ExemptionApplied == "" {
		c.out.ExemptionApplied = rec.CheckExemption(c.taxable, c.req.Quantity)
	}
	if rec.NotificationNumber != nil && *rec.NotificationNumber != "" {
		c.note(fmt.Sprintf("%s rate per notification %s", component, *rec.NotificationNumber))
	}
	return rec, nil
}

func (c *computation) notFound(component taxratedomain.ComponentType, what string) error {
	return gstdomain.NewRateNotFound(component, fmt.Sprintf("no %s for %s as of %s",
		what, c.req.ClassificationCode, c.req.AsOf.Format(time.DateOnly)))
}

func (c *computation) inter(ctx context.Context) error {
	rec, err := c.resolve(ctx, taxratedomain.ComponentIGST, c.rateBusinessType())
	if err != nil {
		return err
	}
	if rec == nil {
		return c.notFound(taxratedomain.ComponentIGST, "IGST rate")
	}
	c.emit(taxratedomain.ComponentIGST, "IGST", rec.RatePercentage, c.amount(rec), rec)
	return nil
}

func (c *computation) intra(ctx context.Context) error {
	state := taxratedomain.ComponentSGST
	if c.policy.IsUnionTerritory(c.req.BuyerStateCode) {
		state = taxratedomain.ComponentUTGST
	}

	if c.strategy == gstdomain.StrategyComponentRecords {
		cgst, err := c.resolve(ctx, taxratedomain.ComponentCGST, c.rateBusinessType())
		if err != nil {
			return err
		}
		if cgst == nil {
			return c.notFound(taxratedomain.ComponentCGST, "CGST rate")
		}
		sgst, err := c.resolve(ctx, state, c.rateBusinessType())
		if err != nil {
			return err
		}
		if sgst == nil {
			return c.notFound(state, string(state)+" rate")
		}
		c.emit(taxratedomain.ComponentCGST, "CGST", cgst.RatePercentage, c.amount(cgst), cgst)
		c.emit(state, string(state), sgst.RatePercentage, c.amount(sgst), sgst)
		return nil
	}

	// Half split: both halves come from the aggregate rate; the state half
	// absorbs the rounding remainder so the pair always sums to the full amount.
	rec, err := c.resolve(ctx, taxratedomain.ComponentIGST, c.rateBusinessType())
	if err != nil {
		return err
	}
	if rec == nil {
		return c.notFound(taxratedomain.ComponentIGST, "aggregate GST rate to split")
	}
	full := c.amount(rec)
	half := rec.RatePercentage.Div(two)
	central := full.Div(two).Round(c.scale)

	c.emit(taxratedomain.ComponentCGST, "CGST", half, central, rec)
	c.emit(state, string(state), half, full.Sub(central), rec)
	return nil
}

func (c *computation) composition(ctx context.Context) error {
	rec, err := c.resolve(ctx, taxratedomain.ComponentIGST, taxratedomain.BusinessComposition)
	if err != nil {
		return err
	}
	if rec != nil {
		c.emit(taxratedomain.ComponentIGST, compositionName, rec.RatePercentage, c.amount(rec), rec)
		return nil
	}

	base, err := c.resolve(ctx, taxratedomain.ComponentIGST, c.rateBusinessType())
	if err != nil {
		return err
	}
	if base == nil {
		return c.notFound(taxratedomain.ComponentIGST, "composition or base GST rate")
	}
	if !base.IsCompositionSchemeApplicable {
		c.note(fmt.Sprintf("Classification %s is not eligible for the composition scheme", c.req.ClassificationCode))
	}

	ratio := c.policy.CompositionRatioDecimal()
	scaled := *base
	scaled.RatePercentage = base.RatePercentage.Mul(ratio)
	if base.FixedAmountPerUnit.Valid {
		scaled.FixedAmountPerUnit = decimal.NewNullDecimal(base.FixedAmountPerUnit.Decimal.Mul(ratio))
	}
	c.note(fmt.Sprintf("Composition rate derived as %s%% of GST rate %s%%",
		ratio.Mul(decimal.NewFromInt(100)).String(), base.RatePercentage.String()))
	c.emit(taxratedomain.ComponentIGST, compositionName, scaled.RatePercentage, c.amount(&scaled), base)
	return nil
}

// cess is optional: an absent or zero record contributes nothing. The
// percentage and per-unit parts are reported as separate lines; when the
// record's clamp changes their sum they collapse into one clamped line.
func (c *computation) cess(ctx context.Context) error {
	rec, err := c.resolve(ctx, taxratedomain.ComponentCESS, c.rateBusinessType())
	if err != nil {
		return err
	}
	if rec == nil || rec.IsZero() {
		return nil
	}

	pct, perUnit := rec.SplitAmount(c.taxable, c.req.Quantity, c.scale)
	total := rec.Clamp(pct.Add(perUnit))
	if !total.Equal(pct.Add(perUnit)) {
		c.emit(taxratedomain.ComponentCESS, cessName, rec.RatePercentage, total, rec)
		return nil
	}

	if rec.RatePercentage.IsPositive() {
		c.emit(taxratedomain.ComponentCESS, cessName, rec.RatePercentage, pct, rec).IsFixed = false
	}
	if rec.HasFixedAmount() {
		c.emit(taxratedomain.ComponentCESS, perUnitCessName, decimal.Zero, perUnit, rec).IsFixed = true
	}
	return nil
}

func (c *computation) amount(rec *taxratedomain.TaxRateRecord) decimal.Decimal {
	return rec.ComputeAmount(c.taxable, c.req.Quantity, c.scale)
}

// emit appends a component line and returns it for adjustment before the next emit.
func (c *computation) emit(component taxratedomain.ComponentType, name string, pct, amount decimal.Decimal, rec *taxratedomain.TaxRateRecord) *gstdomain.TaxComponentResult {
	amount = amount.Round(c.scale)
	result := gstdomain.TaxComponentResult{
		ComponentType:    component,
		Name:             name,
		Percentage:       pct,
		BaseAmount:       c.taxable,
		CalculatedAmount: amount,
		EffectiveRate:    gstdomain.EffectiveRate(amount, c.taxable, c.scale),
		TaxSpec:          c.req.TaxSpec,
		IsFixed:          rec.HasFixedAmount(),
		RateRecordID:     rec.ID,
	}
	if rec.NotificationNumber != nil {
		n := *rec.NotificationNumber
		result.NotificationNumber = &n
	}
	c.out.Components = append(c.out.Components, result)
	return &c.out.Components[len(c.out.Components)-1]
}

func (c *computation) note(text string) {
	for _, existing := range c.out.Notes {
		if existing == text {
			return
		}
	}
	c.out.Notes = append(c.out.Notes, text)
}

func (c *computation) finish() *gstdomain.Computation {
	total := decimal.Zero
	for _, comp := range c.out.Components {
		total = total.Add(comp.CalculatedAmount)
	}
	c.out.TotalTaxAmount = total
	c.out.TotalAmount = c.taxable.Add(total)
	c.out.EffectiveRate = gstdomain.EffectiveRate(total, c.taxable, c.scale)
	if c.out.ReverseChargeAdvisory {
		c.note("Reverse charge applicable: tax is payable by the recipient")
	}
	if c.out.ExemptionApplied != "" {
		c.note("Exemption applied: " + c.out.ExemptionApplied)
	}
	return c.out
}

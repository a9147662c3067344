package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Keys read from TaxRateRecord.Conditions.
const (
	ConditionThresholdLimits   = "threshold_limits"
	ConditionExemptionCriteria = "exemption_criteria"

	LimitAmount   = "EXEMPTION_THRESHOLD"
	LimitQuantity = "QUANTITY_THRESHOLD"

	ExemptionSmallBusiness  = "SMALL_BUSINESS"
	ExemptionEssentialGoods = "ESSENTIAL_GOODS"
)

// Criterion comparisons accepted inside a map-valued exemption.
const (
	ConditionGreaterThan = "GREATER_THAN"
	ConditionLessThan    = "LESS_THAN"
	ConditionEquals      = "EQUALS"
)

// CheckExemption returns the first exemption the record's conditions grant for
// a line of the given taxable value and quantity, or "" when none applies.
// Checks run in order: amount threshold, quantity threshold, small business,
// essential goods. The result is advisory and never changes amounts.
func (r *TaxRateRecord) CheckExemption(taxable decimal.Decimal, quantity int64) string {
	if limit, ok := r.ThresholdLimit(LimitAmount); ok && taxable.LessThanOrEqual(limit) {
		return "Amount below exemption threshold"
	}
	if limit, ok := r.ThresholdLimit(LimitQuantity); ok && decimal.NewFromInt(quantity).LessThanOrEqual(limit) {
		return "Quantity below exemption threshold"
	}
	if r.ExemptionApplies(ExemptionSmallBusiness, &taxable) {
		return "Small business exemption"
	}
	if r.ExemptionApplies(ExemptionEssentialGoods, nil) {
		return "Essential goods exemption"
	}
	return ""
}

// ThresholdLimit reads a numeric limit from threshold_limits.
func (r *TaxRateRecord) ThresholdLimit(kind string) (decimal.Decimal, bool) {
	limits, ok := section(r.Conditions, ConditionThresholdLimits)
	if !ok {
		return decimal.Zero, false
	}
	return toDecimal(limits[kind])
}

// ExemptionApplies evaluates one entry of exemption_criteria. A boolean entry
// applies as is; a map entry compares value against its threshold and never
// applies without a value.
func (r *TaxRateRecord) ExemptionApplies(kind string, value *decimal.Decimal) bool {
	criteria, ok := section(r.Conditions, ConditionExemptionCriteria)
	if !ok {
		return false
	}

	switch criterion := criteria[kind].(type) {
	case bool:
		return criterion
	case map[string]any:
		if value == nil {
			return false
		}
		threshold, ok := toDecimal(criterion["threshold"])
		if !ok {
			return false
		}
		condition, _ := criterion["condition"].(string)
		switch strings.ToUpper(condition) {
		case ConditionGreaterThan:
			return value.GreaterThan(threshold)
		case ConditionLessThan:
			return value.LessThan(threshold)
		case ConditionEquals:
			return value.Equal(threshold)
		}
	}
	return false
}

func section(conditions map[string]any, key string) (map[string]any, bool) {
	if conditions == nil {
		return nil, false
	}
	m, ok := conditions[key].(map[string]any)
	return m, ok
}

// toDecimal accepts the shapes a JSON column or a Go literal can hold.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	}
	return decimal.Zero, false
}

package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ComponentType identifies one tax head on an invoice line.
// These values are persisted; do not rename.
type ComponentType string

const (
	ComponentCGST  ComponentType = "CGST"
	ComponentSGST  ComponentType = "SGST"
	ComponentIGST  ComponentType = "IGST"
	ComponentUTGST ComponentType = "UTGST"
	ComponentCESS  ComponentType = "CESS"
	ComponentTDS   ComponentType = "TDS"
	ComponentTCS   ComponentType = "TCS"
)

func (c ComponentType) Valid() bool {
	switch c {
	case ComponentCGST, ComponentSGST, ComponentIGST, ComponentUTGST, ComponentCESS, ComponentTDS, ComponentTCS:
		return true
	default:
		return false
	}
}

type BusinessType string

const (
	BusinessB2B         BusinessType = "B2B"
	BusinessB2C         BusinessType = "B2C"
	BusinessComposition BusinessType = "COMPOSITION"
	BusinessExport      BusinessType = "EXPORT"
)

func (b BusinessType) Valid() bool {
	switch b {
	case BusinessB2B, BusinessB2C, BusinessComposition, BusinessExport:
		return true
	default:
		return false
	}
}

// Zone names a geographical scope. Empty and ZoneAllIndia both mean "everywhere".
type Zone string

const ZoneAllIndia Zone = "ALL_INDIA"

func (z Zone) IsNationwide() bool {
	return z == "" || strings.EqualFold(string(z), string(ZoneAllIndia))
}

// ZoneDirectory maps a named zone to the state codes it covers.
type ZoneDirectory map[Zone][]string

// NewZoneDirectory builds a directory from raw names and codes, upper-casing both.
func NewZoneDirectory(raw map[string][]string) ZoneDirectory {
	dir := make(ZoneDirectory, len(raw))
	for name, codes := range raw {
		normalized := make([]string, 0, len(codes))
		for _, code := range codes {
			normalized = append(normalized, strings.ToUpper(strings.TrimSpace(code)))
		}
		dir[Zone(strings.ToUpper(strings.TrimSpace(name)))] = normalized
	}
	return dir
}

// Contains reports whether stateCode belongs to zone. Unknown zones contain nothing.
func (d ZoneDirectory) Contains(zone Zone, stateCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(stateCode))
	if code == "" {
		return false
	}
	for _, member := range d[Zone(strings.ToUpper(string(zone)))] {
		if member == code {
			return true
		}
	}
	return false
}

// TaxRateRecord is one effective-dated version of a rate for a single
// classification code, component, business type and zone.
// Versions are closed by setting EffectiveTo, never deleted.
type TaxRateRecord struct {
	ID                 snowflake.ID        `gorm:"primaryKey" json:"id"`
	ClassificationCode string              `gorm:"column:classification_code;type:text;not null;uniqueIndex:uk_tax_rate_version,priority:1" json:"classification_code"`
	ComponentType      ComponentType       `gorm:"column:component_type;type:text;not null;uniqueIndex:uk_tax_rate_version,priority:2" json:"component_type"`
	BusinessType       BusinessType        `gorm:"column:business_type;type:text;not null;uniqueIndex:uk_tax_rate_version,priority:3" json:"business_type"`
	Zone               Zone                `gorm:"column:geographical_zone;type:text;not null;default:ALL_INDIA;uniqueIndex:uk_tax_rate_version,priority:4" json:"geographical_zone"`
	EffectiveFrom      time.Time           `gorm:"column:effective_from;type:date;not null;uniqueIndex:uk_tax_rate_version,priority:5" json:"effective_from"`
	EffectiveTo        *time.Time          `gorm:"column:effective_to;type:date" json:"effective_to,omitempty"`
	RatePercentage     decimal.Decimal     `gorm:"column:rate_percentage;type:numeric(8,4);not null" json:"rate_percentage"`
	FixedAmountPerUnit decimal.NullDecimal `gorm:"column:fixed_amount_per_unit;type:numeric(12,4)" json:"fixed_amount_per_unit"`
	MinimumAmount      decimal.NullDecimal `gorm:"column:minimum_amount;type:numeric(12,4)" json:"minimum_amount"`
	MaximumAmount      decimal.NullDecimal `gorm:"column:maximum_amount;type:numeric(12,4)" json:"maximum_amount"`

	Active                        bool `gorm:"column:active;not null" json:"active"`
	VersionNumber                 int  `gorm:"column:version_number;not null;default:1" json:"version_number"`
	IsReverseChargeApplicable     bool `gorm:"column:is_reverse_charge_applicable;not null;default:false" json:"is_reverse_charge_applicable"`
	IsCompositionSchemeApplicable bool `gorm:"column:is_composition_scheme_applicable;not null" json:"is_composition_scheme_applicable"`

	NotificationNumber *string           `gorm:"column:notification_number;type:text" json:"notification_number,omitempty"`
	Conditions         datatypes.JSONMap `gorm:"column:conditions" json:"conditions,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaxRateRecord) TableName() string { return "tax_rate_records" }

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsValidFor reports active && from <= date && (to unset || date < to).
func (r *TaxRateRecord) IsValidFor(date time.Time) bool {
	if !r.Active {
		return false
	}
	day := Date(date)
	if day.Before(Date(r.EffectiveFrom)) {
		return false
	}
	if r.EffectiveTo != nil && !day.Before(Date(*r.EffectiveTo)) {
		return false
	}
	return true
}

// AppliesToZone reports whether the record covers the buyer's state.
func (r *TaxRateRecord) AppliesToZone(zones ZoneDirectory, buyerStateCode string) bool {
	if r.Zone.IsNationwide() {
		return true
	}
	return zones.Contains(r.Zone, buyerStateCode)
}

// AppliesToBusinessType accepts an exact match, or a B2B record for a B2C request.
func (r *TaxRateRecord) AppliesToBusinessType(requested BusinessType) bool {
	return r.BusinessType == requested ||
		(r.BusinessType == BusinessB2B && requested == BusinessB2C)
}

// HasFixedAmount reports whether a positive per-unit amount is configured.
func (r *TaxRateRecord) HasFixedAmount() bool {
	return r.FixedAmountPerUnit.Valid && r.FixedAmountPerUnit.Decimal.IsPositive()
}

// IsZero reports a record that can never produce tax on its own.
func (r *TaxRateRecord) IsZero() bool {
	return r.RatePercentage.IsZero() && !r.HasFixedAmount()
}

// ComputeAmount applies the record to a taxable value: the percentage part is
// rounded to scale half-up, the per-unit part is added, then min/max clamp.
func (r *TaxRateRecord) ComputeAmount(taxable decimal.Decimal, quantity int64, scale int32) decimal.Decimal {
	pct, perUnit := r.SplitAmount(taxable, quantity, scale)
	return r.Clamp(pct.Add(perUnit))
}

// SplitAmount returns the unclamped percentage and per-unit parts separately.
func (r *TaxRateRecord) SplitAmount(taxable decimal.Decimal, quantity int64, scale int32) (pct, perUnit decimal.Decimal) {
	pct = taxable.Mul(r.RatePercentage).Div(decimal.NewFromInt(100)).Round(scale)
	perUnit = decimal.Zero
	if r.HasFixedAmount() {
		perUnit = r.FixedAmountPerUnit.Decimal.Mul(decimal.NewFromInt(quantity)).Round(scale)
	}
	return pct, perUnit
}

// Clamp bounds amount by the configured minimum and maximum.
func (r *TaxRateRecord) Clamp(amount decimal.Decimal) decimal.Decimal {
	if r.MinimumAmount.Valid && amount.LessThan(r.MinimumAmount.Decimal) {
		amount = r.MinimumAmount.Decimal
	}
	if r.MaximumAmount.Valid && amount.GreaterThan(r.MaximumAmount.Decimal) {
		amount = r.MaximumAmount.Decimal
	}
	return amount
}

func (r *TaxRateRecord) Validate() error {
	if strings.TrimSpace(r.ClassificationCode) == "" {
		return ErrInvalidClassificationCode
	}
	if !r.ComponentType.Valid() {
		return ErrInvalidComponentType
	}
	if !r.BusinessType.Valid() {
		return ErrInvalidBusinessType
	}
	if r.RatePercentage.IsNegative() {
		return ErrInvalidRate
	}
	for _, v := range []decimal.NullDecimal{r.FixedAmountPerUnit, r.MinimumAmount, r.MaximumAmount} {
		if v.Valid && v.Decimal.IsNegative() {
			return ErrInvalidAmount
		}
	}
	if r.MinimumAmount.Valid && r.MaximumAmount.Valid && r.MinimumAmount.Decimal.GreaterThan(r.MaximumAmount.Decimal) {
		return ErrInvalidClamp
	}
	if r.EffectiveFrom.IsZero() {
		return ErrInvalidEffectiveWindow
	}
	if r.EffectiveTo != nil && !Date(*r.EffectiveTo).After(Date(r.EffectiveFrom)) {
		return ErrInvalidEffectiveWindow
	}
	return nil
}

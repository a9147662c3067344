package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
)

// TransactionTaxSpec is the jurisdictional nature of a supply.
type TransactionTaxSpec string

const (
	TaxSpecInter       TransactionTaxSpec = "INTER"
	TaxSpecIntra       TransactionTaxSpec = "INTRA"
	TaxSpecComposition TransactionTaxSpec = "COMPOSITION"
	TaxSpecExport      TransactionTaxSpec = "EXPORT"
	TaxSpecExempt      TransactionTaxSpec = "EXEMPT"
	TaxSpecNil         TransactionTaxSpec = "NIL"
)

func (s TransactionTaxSpec) Valid() bool {
	switch s {
	case TaxSpecInter, TaxSpecIntra, TaxSpecComposition, TaxSpecExport, TaxSpecExempt, TaxSpecNil:
		return true
	default:
		return false
	}
}

// IsZeroRated reports specs that never carry tax.
func (s TransactionTaxSpec) IsZeroRated() bool {
	return s == TaxSpecExport || s == TaxSpecExempt || s == TaxSpecNil
}

func (s TransactionTaxSpec) Label() string {
	switch s {
	case TaxSpecInter:
		return "Inter-state supply"
	case TaxSpecIntra:
		return "Intra-state supply"
	case TaxSpecComposition:
		return "Composition scheme supply"
	case TaxSpecExport:
		return "Export supply"
	case TaxSpecExempt:
		return "Exempt supply"
	case TaxSpecNil:
		return "Nil-rated supply"
	default:
		return string(s)
	}
}

// RateResolutionStrategy selects how the intra-state pair is obtained.
type RateResolutionStrategy string

const (
	// StrategyHalfSplit derives CGST and the state component as equal halves
	// of the single aggregate GST (IGST) record.
	StrategyHalfSplit RateResolutionStrategy = "half_split"
	// StrategyComponentRecords resolves CGST and SGST/UTGST as separate records.
	StrategyComponentRecords RateResolutionStrategy = "component_records"
)

func (s RateResolutionStrategy) Valid() bool {
	return s == StrategyHalfSplit || s == StrategyComponentRecords
}

// DetermineTaxSpec derives the spec from the business type and both state codes.
// A missing state is treated as inter-state.
func DetermineTaxSpec(businessType taxratedomain.BusinessType, sellerStateCode, buyerStateCode string) TransactionTaxSpec {
	switch businessType {
	case taxratedomain.BusinessExport:
		return TaxSpecExport
	case taxratedomain.BusinessComposition:
		return TaxSpecComposition
	}

	seller := strings.TrimSpace(sellerStateCode)
	buyer := strings.TrimSpace(buyerStateCode)
	if seller == "" || buyer == "" {
		return TaxSpecInter
	}
	if strings.EqualFold(seller, buyer) {
		return TaxSpecIntra
	}
	return TaxSpecInter
}

// ComputeRequest is the input of a single computation. AsOf is supplied by
// the caller; the engine never reads the wall clock.
type ComputeRequest struct {
	BaseAmount         decimal.Decimal            `json:"base_amount"`
	Quantity           int64                      `json:"quantity" validate:"gte=0"`
	ClassificationCode string                     `json:"classification_code" validate:"required,max=16"`
	BusinessType       taxratedomain.BusinessType `json:"business_type" validate:"required,oneof=B2B B2C COMPOSITION EXPORT"`
	BuyerStateCode     string                     `json:"buyer_state_code,omitempty" validate:"omitempty,len=2,alpha"`
	SellerStateCode    string                     `json:"seller_state_code,omitempty" validate:"omitempty,len=2,alpha"`
	AsOf               time.Time                  `json:"as_of"`
	TaxSpec            TransactionTaxSpec         `json:"tax_spec" validate:"required,oneof=INTER INTRA COMPOSITION EXPORT EXEMPT NIL"`
	// Strategy overrides the configured RateResolutionStrategy when set.
	Strategy RateResolutionStrategy `json:"strategy,omitempty" validate:"omitempty,oneof=half_split component_records"`
}

// TaxComponentResult is one emitted tax line. Never mutated after creation.
type TaxComponentResult struct {
	ComponentType      taxratedomain.ComponentType `json:"component_type"`
	Name               string                      `json:"name"`
	Percentage         decimal.Decimal             `json:"percentage"`
	BaseAmount         decimal.Decimal             `json:"base_amount"`
	CalculatedAmount   decimal.Decimal             `json:"calculated_amount"`
	EffectiveRate      decimal.Decimal             `json:"effective_rate"`
	TaxSpec            TransactionTaxSpec          `json:"tax_spec"`
	IsFixed            bool                        `json:"is_fixed"`
	RateRecordID       snowflake.ID                `json:"rate_record_id,omitempty"`
	NotificationNumber *string                     `json:"notification_number,omitempty"`
}

// Computation is the full breakdown of one supply.
type Computation struct {
	ClassificationCode    string                 `json:"classification_code"`
	ClassificationPath    string                 `json:"classification_path"`
	TaxSpec               TransactionTaxSpec     `json:"tax_spec"`
	Strategy              RateResolutionStrategy `json:"strategy"`
	AsOf                  time.Time              `json:"as_of"`
	Quantity              int64                  `json:"quantity"`
	TaxableAmount         decimal.Decimal        `json:"taxable_amount"`
	Components            []TaxComponentResult   `json:"components"`
	TotalTaxAmount        decimal.Decimal        `json:"total_tax_amount"`
	TotalAmount           decimal.Decimal        `json:"total_amount"`
	EffectiveRate         decimal.Decimal        `json:"effective_rate"`
	ReverseChargeAdvisory bool                   `json:"reverse_charge_advisory"`
	// ExemptionApplied names the exemption a rate's conditions grant. Advisory
	// like the reverse-charge flag: amounts are computed as usual.
	ExemptionApplied string   `json:"exemption_applied,omitempty"`
	Notes            []string `json:"notes,omitempty"`
}

// EffectiveRate returns amount / base * 100 at scale, zero for a zero base.
func EffectiveRate(amount, base decimal.Decimal, scale int32) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(100)).Div(base).Round(scale)
}

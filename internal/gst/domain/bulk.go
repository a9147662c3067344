package domain

import (
	"time"

	"github.com/shopspring/decimal"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
)

const MaxBulkItems = 100

// BulkItem is one line of a bulk request; the transaction context is shared.
type BulkItem struct {
	ItemID             string          `json:"item_id,omitempty"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	Quantity           int64           `json:"quantity"`
	ClassificationCode string          `json:"classification_code"`
}

// BulkRequest computes many items under one transaction context. An empty
// TaxSpec is derived with DetermineTaxSpec.
type BulkRequest struct {
	BusinessType    taxratedomain.BusinessType `json:"business_type"`
	BuyerStateCode  string                     `json:"buyer_state_code,omitempty"`
	SellerStateCode string                     `json:"seller_state_code,omitempty"`
	AsOf            time.Time                  `json:"as_of"`
	TaxSpec         TransactionTaxSpec         `json:"tax_spec,omitempty"`
	Strategy        RateResolutionStrategy     `json:"strategy,omitempty"`
	Items           []BulkItem                 `json:"items"`
}

// ItemRequest builds the single-item request for Items[i].
func (r BulkRequest) ItemRequest(i int) ComputeRequest {
	item := r.Items[i]
	return ComputeRequest{
		BaseAmount:         item.BaseAmount,
		Quantity:           item.Quantity,
		ClassificationCode: item.ClassificationCode,
		BusinessType:       r.BusinessType,
		BuyerStateCode:     r.BuyerStateCode,
		SellerStateCode:    r.SellerStateCode,
		AsOf:               r.AsOf,
		TaxSpec:            r.TaxSpec,
		Strategy:           r.Strategy,
	}
}

type BulkItemResult struct {
	Index       int          `json:"index"`
	ItemID      string       `json:"item_id,omitempty"`
	Computation *Computation `json:"computation,omitempty"`
	Error       string       `json:"error,omitempty"`
	Err         error        `json:"-"`
}

func (r BulkItemResult) Failed() bool { return r.Err != nil }

// TaxSummary aggregates the successful items of a bulk computation.
type TaxSummary struct {
	TotalCGST                 decimal.Decimal `json:"total_cgst"`
	TotalSGST                 decimal.Decimal `json:"total_sgst"`
	TotalUTGST                decimal.Decimal `json:"total_utgst"`
	TotalIGST                 decimal.Decimal `json:"total_igst"`
	TotalCess                 decimal.Decimal `json:"total_cess"`
	TotalGST                  decimal.Decimal `json:"total_gst"`
	EffectiveTaxRate          decimal.Decimal `json:"effective_tax_rate"`
	UniqueClassificationCodes []string        `json:"unique_classification_codes"`
	ItemCount                 int             `json:"item_count"`
	FailedCount               int             `json:"failed_count"`
}

type BulkComputation struct {
	TaxSpec         TransactionTaxSpec `json:"tax_spec"`
	Items           []BulkItemResult   `json:"items"`
	TotalBaseAmount decimal.Decimal    `json:"total_base_amount"`
	TotalTaxAmount  decimal.Decimal    `json:"total_tax_amount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Summary         TaxSummary         `json:"summary"`
}

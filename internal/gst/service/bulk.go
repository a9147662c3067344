package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	gstdomain "github.com/smallbiznis/gstengine/internal/gst/domain"
	"github.com/smallbiznis/gstengine/internal/observability/logger"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"github.com/smallbiznis/gstengine/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const bulkConcurrency = 8

// ComputeBulk computes every item under the shared context. Item failures are
// recorded on the item and excluded from totals; only a malformed batch or a
// cancelled context fails the call.
func (e *engine) ComputeBulk(ctx context.Context, req gstdomain.BulkRequest) (*gstdomain.BulkComputation, error) {
	ctx, span := e.tracer.Start(ctx, "gst.ComputeBulk")
	defer span.End()
	// items share the batch id
	ctx, _ = correlation.Ensure(ctx)

	switch n := len(req.Items); {
	case n == 0:
		return nil, gstdomain.NewInvalidInput("items", "at least one item is required")
	case n > gstdomain.MaxBulkItems:
		return nil, gstdomain.NewInvalidInput("items", fmt.Sprintf("at most %d items per request, got %d", gstdomain.MaxBulkItems, n))
	}
	if req.TaxSpec == "" {
		req.TaxSpec = gstdomain.DetermineTaxSpec(req.BusinessType, req.SellerStateCode, req.BuyerStateCode)
	}

	results := make([]gstdomain.BulkItemResult, len(req.Items))
	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i := range req.Items {
		i := i
		g.Go(func() error {
			comp, err := e.ComputeTax(ctx, req.ItemRequest(i))
			result := gstdomain.BulkItemResult{Index: i, ItemID: req.Items[i].ItemID, Computation: comp, Err: err}
			if err != nil {
				result.Error = err.Error()
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := summarize(results, e.policy.Get().RoundingScale)
	out.TaxSpec = req.TaxSpec
	logger.WithContext(ctx, e.log).Debug("bulk computation finished",
		zap.Int("items", out.Summary.ItemCount),
		zap.Int("failed", out.Summary.FailedCount),
	)
	return out, nil
}

func summarize(results []gstdomain.BulkItemResult, scale int32) *gstdomain.BulkComputation {
	out := &gstdomain.BulkComputation{
		Items:           results,
		TotalBaseAmount: decimal.Zero,
		TotalTaxAmount:  decimal.Zero,
		TotalAmount:     decimal.Zero,
	}
	sum := &out.Summary
	sum.TotalCGST, sum.TotalSGST, sum.TotalUTGST = decimal.Zero, decimal.Zero, decimal.Zero
	sum.TotalIGST, sum.TotalCess = decimal.Zero, decimal.Zero
	sum.ItemCount = len(results)
	sum.UniqueClassificationCodes = []string{}

	for _, item := range results {
		if item.Failed() || item.Computation == nil {
			sum.FailedCount++
			continue
		}
		comp := item.Computation
		out.TotalBaseAmount = out.TotalBaseAmount.Add(comp.TaxableAmount)
		out.TotalTaxAmount = out.TotalTaxAmount.Add(comp.TotalTaxAmount)
		out.TotalAmount = out.TotalAmount.Add(comp.TotalAmount)
		if !slices.Contains(sum.UniqueClassificationCodes, comp.ClassificationCode) {
			sum.UniqueClassificationCodes = append(sum.UniqueClassificationCodes, comp.ClassificationCode)
		}

		for _, line := range comp.Components {
			switch line.ComponentType {
			case taxratedomain.ComponentCGST:
				sum.TotalCGST = sum.TotalCGST.Add(line.CalculatedAmount)
			case taxratedomain.ComponentSGST:
				sum.TotalSGST = sum.TotalSGST.Add(line.CalculatedAmount)
			case taxratedomain.ComponentUTGST:
				sum.TotalUTGST = sum.TotalUTGST.Add(line.CalculatedAmount)
			case taxratedomain.ComponentIGST:
				sum.TotalIGST = sum.TotalIGST.Add(line.CalculatedAmount)
			case taxratedomain.ComponentCESS:
				sum.TotalCess = sum.TotalCess.Add(line.CalculatedAmount)
			}
		}
	}

	slices.Sort(sum.UniqueClassificationCodes)
	sum.TotalGST = sum.TotalCGST.Add(sum.TotalSGST).Add(sum.TotalUTGST).Add(sum.TotalIGST)
	sum.EffectiveTaxRate = gstdomain.EffectiveRate(out.TotalTaxAmount, out.TotalBaseAmount, scale)
	return out
}

package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsValidForWindow(t *testing.T) {
	to := day(2025, 6, 1)
	rec := TaxRateRecord{
		Active:         true,
		EffectiveFrom:  day(2025, 1, 1),
		EffectiveTo:    &to,
		RatePercentage: decimal.NewFromInt(18),
	}

	assert.True(t, rec.IsValidFor(day(2025, 3, 1)))
	assert.True(t, rec.IsValidFor(day(2025, 1, 1)))
	assert.False(t, rec.IsValidFor(day(2025, 6, 1)))
	assert.False(t, rec.IsValidFor(day(2025, 7, 1)))
	assert.False(t, rec.IsValidFor(day(2024, 12, 31)))

	// time of day does not move a record across its boundary
	assert.True(t, rec.IsValidFor(time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC)))

	rec.Active = false
	assert.False(t, rec.IsValidFor(day(2025, 3, 1)))
}

func TestAppliesToZone(t *testing.T) {
	zones := NewZoneDirectory(map[string][]string{"south": {"ka", "TN"}})

	nationwide := TaxRateRecord{Zone: ZoneAllIndia}
	assert.True(t, nationwide.AppliesToZone(zones, ""))
	assert.True(t, nationwide.AppliesToZone(zones, "MH"))

	blank := TaxRateRecord{}
	assert.True(t, blank.AppliesToZone(zones, "MH"))

	south := TaxRateRecord{Zone: "SOUTH"}
	assert.True(t, south.AppliesToZone(zones, "KA"))
	assert.True(t, south.AppliesToZone(zones, "tn"))
	assert.False(t, south.AppliesToZone(zones, "MH"))
	assert.False(t, south.AppliesToZone(zones, ""))

	unknown := TaxRateRecord{Zone: "MARS"}
	assert.False(t, unknown.AppliesToZone(zones, "KA"))
}

func TestAppliesToBusinessType(t *testing.T) {
	b2b := TaxRateRecord{BusinessType: BusinessB2B}
	assert.True(t, b2b.AppliesToBusinessType(BusinessB2B))
	assert.True(t, b2b.AppliesToBusinessType(BusinessB2C))
	assert.False(t, b2b.AppliesToBusinessType(BusinessComposition))

	b2c := TaxRateRecord{BusinessType: BusinessB2C}
	assert.False(t, b2c.AppliesToBusinessType(BusinessB2B))
}

func TestComputeAmount(t *testing.T) {
	taxable := decimal.NewFromInt(50000)

	pct := TaxRateRecord{RatePercentage: decimal.NewFromInt(28)}
	assert.True(t, decimal.RequireFromString("14000.0000").Equal(pct.ComputeAmount(taxable, 1, 4)))

	// 333.33 * 18% = 59.9994
	odd := TaxRateRecord{RatePercentage: decimal.NewFromInt(18)}
	assert.Equal(t, "59.9994", odd.ComputeAmount(decimal.RequireFromString("333.33"), 1, 4).String())

	// half-up at the fourth place: 0.00005 rounds away
	tiny := TaxRateRecord{RatePercentage: decimal.NewFromInt(1)}
	assert.Equal(t, "0.0001", tiny.ComputeAmount(decimal.RequireFromString("0.005"), 1, 4).String())

	fixed := TaxRateRecord{
		RatePercentage:     decimal.Zero,
		FixedAmountPerUnit: decimal.NewNullDecimal(decimal.NewFromInt(400)),
	}
	assert.True(t, decimal.NewFromInt(1200).Equal(fixed.ComputeAmount(taxable, 3, 4)))
	assert.True(t, fixed.HasFixedAmount())
	assert.False(t, fixed.IsZero())
}

func TestSplitAmount(t *testing.T) {
	rec := TaxRateRecord{
		RatePercentage:     decimal.NewFromInt(5),
		FixedAmountPerUnit: decimal.NewNullDecimal(decimal.RequireFromString("4.17")),
	}

	pct, perUnit := rec.SplitAmount(decimal.NewFromInt(5000), 1000, 4)
	assert.True(t, decimal.NewFromInt(250).Equal(pct))
	assert.True(t, decimal.NewFromInt(4170).Equal(perUnit))
	assert.True(t, decimal.NewFromInt(4420).Equal(rec.ComputeAmount(decimal.NewFromInt(5000), 1000, 4)))

	plain := TaxRateRecord{RatePercentage: decimal.NewFromInt(5)}
	_, perUnit = plain.SplitAmount(decimal.NewFromInt(5000), 1000, 4)
	assert.True(t, perUnit.IsZero())
}

func TestClamp(t *testing.T) {
	rec := TaxRateRecord{
		RatePercentage: decimal.NewFromInt(3),
		MinimumAmount:  decimal.NewNullDecimal(decimal.NewFromInt(50)),
		MaximumAmount:  decimal.NewNullDecimal(decimal.NewFromInt(500)),
	}

	// 1000 * 3% = 30 -> raised to the minimum
	assert.True(t, decimal.NewFromInt(50).Equal(rec.ComputeAmount(decimal.NewFromInt(1000), 1, 4)))
	// 100000 * 3% = 3000 -> capped
	assert.True(t, decimal.NewFromInt(500).Equal(rec.ComputeAmount(decimal.NewFromInt(100000), 1, 4)))
	assert.True(t, decimal.NewFromInt(120).Equal(rec.ComputeAmount(decimal.NewFromInt(4000), 1, 4)))
}

func TestValidate(t *testing.T) {
	valid := func() TaxRateRecord {
		return TaxRateRecord{
			ClassificationCode: "2523",
			ComponentType:      ComponentIGST,
			BusinessType:       BusinessB2B,
			EffectiveFrom:      day(2025, 1, 1),
			RatePercentage:     decimal.NewFromInt(28),
		}
	}

	rec := valid()
	assert.NoError(t, rec.Validate())

	rec = valid()
	rec.ClassificationCode = " "
	assert.ErrorIs(t, rec.Validate(), ErrInvalidClassificationCode)

	rec = valid()
	rec.ComponentType = "VAT"
	assert.ErrorIs(t, rec.Validate(), ErrInvalidComponentType)

	rec = valid()
	rec.RatePercentage = decimal.NewFromInt(-1)
	assert.ErrorIs(t, rec.Validate(), ErrInvalidRate)

	rec = valid()
	rec.MinimumAmount = decimal.NewNullDecimal(decimal.NewFromInt(10))
	rec.MaximumAmount = decimal.NewNullDecimal(decimal.NewFromInt(5))
	assert.ErrorIs(t, rec.Validate(), ErrInvalidClamp)

	rec = valid()
	to := day(2025, 1, 1)
	rec.EffectiveTo = &to
	assert.ErrorIs(t, rec.Validate(), ErrInvalidEffectiveWindow)
}

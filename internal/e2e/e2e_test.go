package e2e

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gstengine/internal/cache"
	"github.com/smallbiznis/gstengine/internal/clock"
	"github.com/smallbiznis/gstengine/internal/config"
	"github.com/smallbiznis/gstengine/internal/gst"
	gstdomain "github.com/smallbiznis/gstengine/internal/gst/domain"
	"github.com/smallbiznis/gstengine/internal/hsn"
	hsndomain "github.com/smallbiznis/gstengine/internal/hsn/domain"
	"github.com/smallbiznis/gstengine/internal/migration"
	"github.com/smallbiznis/gstengine/internal/observability"
	obslogger "github.com/smallbiznis/gstengine/internal/observability/logger"
	"github.com/smallbiznis/gstengine/internal/reference"
	referencedomain "github.com/smallbiznis/gstengine/internal/reference/domain"
	"github.com/smallbiznis/gstengine/internal/seed"
	"github.com/smallbiznis/gstengine/internal/taxrate"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fx.App
	db     *gorm.DB
	node   *snowflake.Node
	engine gstdomain.Engine
	states referencedomain.Repository

	rateAdmin taxratedomain.Service
	codeAdmin hsndomain.Service
}

var env *testEnv

func TestMain(m *testing.M) {
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func startEnv() (*testEnv, error) {
	e := &testEnv{}
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.SnowflakeNode)
		}),
		fx.Provide(openTestDB),
		migration.Module,
		clock.Module,
		cache.Module,
		reference.Module,
		hsn.Module,
		taxrate.Module,
		gst.Module,
		fx.Populate(&e.db, &e.node, &e.engine, &e.states, &e.rateAdmin, &e.codeAdmin),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	e.app = app
	return e, nil
}

// openTestDB stands in for pkg/db with a pure-Go in-memory sqlite.
func openTestDB(lc fx.Lifecycle) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open("file:gstengine_e2e?mode=memory&cache=shared"), &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return conn, nil
}

func (e *testEnv) shutdown() {
	if e == nil || e.app == nil {
		return
	}
	_ = e.app.Stop(context.Background())
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("SEED_REFERENCE_DATA", "true")
	setEnvIfEmpty("OTEL_ENABLED", "false")
	_ = os.Setenv("REDIS_ADDR", "")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestE2E_ReferenceDataSeeded(t *testing.T) {
	var states, codes, rates int64
	require.NoError(t, env.db.Table("states").Count(&states).Error)
	require.NoError(t, env.db.Table("hsn_codes").Count(&codes).Error)
	require.NoError(t, env.db.Table("tax_rate_records").Count(&rates).Error)
	assert.Equal(t, int64(37), states)
	assert.Equal(t, int64(13), codes)
	assert.Equal(t, int64(11), rates)

	// reruns insert nothing
	stats, err := seed.EnsureReferenceData(context.Background(), env.db, env.node)
	require.NoError(t, err)
	assert.Equal(t, seed.Stats{}, stats)
}

func TestE2E_StateDirectory(t *testing.T) {
	ka, err := env.states.FindState(context.Background(), "29")
	require.NoError(t, err)
	assert.Equal(t, "KA", ka.Code)

	// every seeded Union Territory is routed to UTGST by the default policy
	all, err := env.states.ListStates(context.Background())
	require.NoError(t, err)
	policy := config.DefaultGSTPolicy()
	for _, st := range all {
		assert.Equalf(t, st.UnionTerritory, policy.IsUnionTerritory(st.Code), "state %s", st.Code)
	}
}

func TestE2E_CementAcrossRateRevision(t *testing.T) {
	req := gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(50000),
		Quantity:           1,
		ClassificationCode: "2523",
		BusinessType:       taxratedomain.BusinessB2B,
		SellerStateCode:    "KA",
		BuyerStateCode:     "KA",
		AsOf:               day(2025, 3, 1),
		TaxSpec:            gstdomain.TaxSpecIntra,
	}

	before, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, before.Components, 2)
	amount(t, "7000.0000", before.Components[0].CalculatedAmount)
	amount(t, "7000.0000", before.Components[1].CalculatedAmount)
	amount(t, "64000.0000", before.TotalAmount)
	assert.Equal(t, "25 > 2523", before.ClassificationPath)

	req.AsOf = day(2025, 10, 1)
	after, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	amount(t, "4500", after.Components[0].CalculatedAmount)
	amount(t, "4500", after.Components[1].CalculatedAmount)
	assert.Contains(t, after.Notes, "IGST rate per notification 9/2025-Integrated Tax (Rate)")
}

func TestE2E_CigarettesCarryPerUnitCess(t *testing.T) {
	out, err := env.engine.ComputeTax(context.Background(), gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(5),
		Quantity:           1000,
		ClassificationCode: "2402",
		BusinessType:       taxratedomain.BusinessB2B,
		SellerStateCode:    "KA",
		BuyerStateCode:     "MH",
		AsOf:               day(2025, 3, 1),
		TaxSpec:            gstdomain.TaxSpecInter,
	})
	require.NoError(t, err)

	require.Len(t, out.Components, 3)
	amount(t, "1400", out.Components[0].CalculatedAmount)
	// 5% of 5000, then 4.17 per stick on its own line
	assert.Equal(t, "Cess", out.Components[1].Name)
	amount(t, "250", out.Components[1].CalculatedAmount)
	assert.False(t, out.Components[1].IsFixed)
	assert.Equal(t, "Cess (Per Unit)", out.Components[2].Name)
	amount(t, "4170", out.Components[2].CalculatedAmount)
	assert.True(t, out.Components[2].IsFixed)
	amount(t, "5820", out.TotalTaxAmount)
	amount(t, "10820", out.TotalAmount)
}

func TestE2E_GoodsTransportIsReverseCharge(t *testing.T) {
	out, err := env.engine.ComputeTax(context.Background(), gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(20000),
		ClassificationCode: "9965",
		BusinessType:       taxratedomain.BusinessB2B,
		SellerStateCode:    "DL",
		BuyerStateCode:     "DL",
		AsOf:               day(2025, 3, 1),
		TaxSpec:            gstdomain.TaxSpecIntra,
	})
	require.NoError(t, err)

	assert.True(t, out.ReverseChargeAdvisory)
	require.Len(t, out.Components, 2)
	assert.Equal(t, taxratedomain.ComponentUTGST, out.Components[1].ComponentType)
	amount(t, "500", out.Components[0].CalculatedAmount)
}

func TestE2E_SmallConsignmentExemption(t *testing.T) {
	req := gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(1200),
		ClassificationCode: "9965",
		BusinessType:       taxratedomain.BusinessB2B,
		SellerStateCode:    "KA",
		BuyerStateCode:     "MH",
		AsOf:               day(2025, 3, 1),
		TaxSpec:            gstdomain.TaxSpecInter,
	}

	out, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Amount below exemption threshold", out.ExemptionApplied)
	assert.Contains(t, out.Notes, "Exemption applied: Amount below exemption threshold")
	amount(t, "60", out.TotalTaxAmount)

	// conditions survive the JSON column round trip
	req.BaseAmount = decimal.NewFromInt(20000)
	out, err = env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, out.ExemptionApplied)
}

func TestE2E_CompositionDealer(t *testing.T) {
	out, err := env.engine.ComputeTax(context.Background(), gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(10000),
		ClassificationCode: "2523",
		BusinessType:       taxratedomain.BusinessComposition,
		SellerStateCode:    "KA",
		BuyerStateCode:     "KA",
		AsOf:               day(2025, 3, 1),
		TaxSpec:            gstdomain.DetermineTaxSpec(taxratedomain.BusinessComposition, "KA", "KA"),
	})
	require.NoError(t, err)

	require.Len(t, out.Components, 1)
	assert.Equal(t, "GST (Composition)", out.Components[0].Name)
	amount(t, "100", out.Components[0].CalculatedAmount)
}

func TestE2E_ClosedVersionStopsResolving(t *testing.T) {
	rec, err := env.rateAdmin.CreateRate(context.Background(), taxratedomain.CreateRateRequest{
		ClassificationCode: "8471",
		ComponentType:      taxratedomain.ComponentIGST,
		BusinessType:       taxratedomain.BusinessB2C,
		EffectiveFrom:      day(2030, 1, 1),
		RatePercentage:     decimal.NewFromInt(12),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.VersionNumber)

	req := gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(1000),
		ClassificationCode: "8471",
		BusinessType:       taxratedomain.BusinessB2C,
		AsOf:               day(2030, 7, 1),
		TaxSpec:            gstdomain.TaxSpecInter,
	}
	unbounded, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	amount(t, "120", unbounded.TotalTaxAmount)

	closed, err := env.rateAdmin.CloseRate(context.Background(), rec.ID, day(2030, 6, 1))
	require.NoError(t, err)
	require.NotNil(t, closed.EffectiveTo)

	req.AsOf = day(2030, 3, 1)
	inside, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	amount(t, "120", inside.TotalTaxAmount)

	// after the close the B2B schedule applies again
	req.AsOf = day(2030, 7, 1)
	outside, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	amount(t, "180", outside.TotalTaxAmount)
}

func TestE2E_AddedCodeIsClassifiedImmediately(t *testing.T) {
	req := gstdomain.ComputeRequest{
		BaseAmount:         decimal.NewFromInt(1000),
		ClassificationCode: "7318",
		BusinessType:       taxratedomain.BusinessB2B,
		AsOf:               day(2025, 3, 1),
		TaxSpec:            gstdomain.TaxSpecInter,
	}
	_, err := env.engine.ComputeTax(context.Background(), req)
	require.ErrorIs(t, err, gstdomain.ErrInvalidClassification)

	_, err = env.codeAdmin.AddCode(context.Background(), hsndomain.AddCodeRequest{Code: "73", Description: "Articles of iron or steel"})
	require.NoError(t, err)
	added, err := env.codeAdmin.AddCode(context.Background(), hsndomain.AddCodeRequest{Code: "7318", ParentCode: "73", Description: "Screws, bolts, nuts"})
	require.NoError(t, err)
	assert.Equal(t, 2, added.Level)

	// classified now, but no rate is configured yet
	_, err = env.engine.ComputeTax(context.Background(), req)
	require.ErrorIs(t, err, gstdomain.ErrRateNotFound)

	_, err = env.rateAdmin.CreateRate(context.Background(), taxratedomain.CreateRateRequest{
		ClassificationCode: "7318",
		ComponentType:      taxratedomain.ComponentIGST,
		BusinessType:       taxratedomain.BusinessB2B,
		EffectiveFrom:      day(2017, 7, 1),
		RatePercentage:     decimal.NewFromInt(18),
	})
	require.NoError(t, err)

	out, err := env.engine.ComputeTax(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "73 > 7318", out.ClassificationPath)
	amount(t, "180", out.TotalTaxAmount)
}

func TestE2E_BulkInvoice(t *testing.T) {
	out, err := env.engine.ComputeBulk(context.Background(), gstdomain.BulkRequest{
		BusinessType:    taxratedomain.BusinessB2B,
		SellerStateCode: "KA",
		BuyerStateCode:  "TN",
		AsOf:            day(2025, 3, 1),
		Items: []gstdomain.BulkItem{
			{ItemID: "1", BaseAmount: decimal.NewFromInt(50000), Quantity: 1, ClassificationCode: "2523"},
			{ItemID: "2", BaseAmount: decimal.NewFromInt(60000), Quantity: 2, ClassificationCode: "8471"},
			{ItemID: "3", BaseAmount: decimal.NewFromInt(100), Quantity: 1, ClassificationCode: "7308"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, gstdomain.TaxSpecInter, out.TaxSpec)
	assert.Equal(t, 1, out.Summary.FailedCount)
	// 14000 + 21600
	amount(t, "35600", out.Summary.TotalIGST)
	amount(t, "170000", out.TotalBaseAmount)
	assert.Equal(t, []string{"2523", "8471"}, out.Summary.UniqueClassificationCodes)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
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
	"github.com/smallbiznis/gstengine/internal/reference"
	referencedomain "github.com/smallbiznis/gstengine/internal/reference/domain"
	"github.com/smallbiznis/gstengine/internal/taxrate"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"github.com/smallbiznis/gstengine/pkg/db"
	"github.com/smallbiznis/gstengine/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type options struct {
	classificationCode string
	amount             string
	quantity           int64
	businessType       string
	sellerState        string
	buyerState         string
	asOf               string
	taxSpec            string
	strategy           string
	bulkFile           string

	addCode     string
	parentCode  string
	description string
	closeRate   string
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.classificationCode, "hsn", "", "HSN classification code")
	flag.StringVar(&opts.amount, "amount", "0", "base amount per unit")
	flag.Int64Var(&opts.quantity, "qty", 1, "quantity")
	flag.StringVar(&opts.businessType, "business", "B2B", "business type: B2B, B2C, COMPOSITION, EXPORT")
	flag.StringVar(&opts.sellerState, "seller", "", "seller state code, e.g. KA or 29")
	flag.StringVar(&opts.buyerState, "buyer", "", "buyer state code, e.g. KA or 29")
	flag.StringVar(&opts.asOf, "date", "", "transaction date YYYY-MM-DD (default today, UTC)")
	flag.StringVar(&opts.taxSpec, "spec", "", "INTER, INTRA, COMPOSITION, EXPORT, EXEMPT or NIL (default derived from states)")
	flag.StringVar(&opts.strategy, "strategy", "", "half_split or component_records (default from policy)")
	flag.StringVar(&opts.bulkFile, "bulk", "", "path to a JSON bulk request; overrides the single-item flags")
	flag.StringVar(&opts.addCode, "add-hsn", "", "add this classification code instead of computing")
	flag.StringVar(&opts.parentCode, "parent", "", "parent code for -add-hsn; empty adds a chapter")
	flag.StringVar(&opts.description, "desc", "", "description for -add-hsn")
	flag.StringVar(&opts.closeRate, "close-rate", "", "close the rate version with this id on -date instead of computing")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		reference.Module,
		hsn.Module,
		taxrate.Module,
		gst.Module,
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, d deps) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						code := 0
						if err := run(d, opts); err != nil {
							fmt.Fprintln(os.Stderr, err)
							code = 1
						}
						_ = sd.Shutdown(fx.ExitCode(code))
					}()
					return nil
				},
			})
		}),
	)

	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

type deps struct {
	fx.In

	Engine gstdomain.Engine
	States referencedomain.Repository
	Codes  hsndomain.Service
	Rates  taxratedomain.Service
	Clock  clock.Clock
	Log    *zap.Logger
}

func run(d deps, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx, cid := correlation.Ensure(ctx)
	log := d.Log.Named("cli").With(zap.String(correlation.FieldName, cid))
	engine, states := d.Engine, d.States

	asOf := clock.Today(d.Clock)
	if opts.asOf != "" {
		parsed, err := time.Parse(time.DateOnly, opts.asOf)
		if err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
		asOf = parsed
	}

	switch {
	case opts.addCode != "":
		added, err := d.Codes.AddCode(ctx, hsndomain.AddCodeRequest{
			Code:        opts.addCode,
			ParentCode:  opts.parentCode,
			Description: opts.description,
		})
		if err != nil {
			return err
		}
		return writeJSON(added)
	case opts.closeRate != "":
		id, err := snowflake.ParseString(strings.TrimSpace(opts.closeRate))
		if err != nil {
			return fmt.Errorf("invalid -close-rate: %w", err)
		}
		closed, err := d.Rates.CloseRate(ctx, id, asOf)
		if err != nil {
			return err
		}
		return writeJSON(closed)
	}

	if opts.bulkFile != "" {
		req, err := readBulkRequest(opts.bulkFile)
		if err != nil {
			return err
		}
		if req.AsOf.IsZero() {
			req.AsOf = asOf
		}
		out, err := engine.ComputeBulk(ctx, req)
		if err != nil {
			return err
		}
		log.Info("bulk computation done",
			zap.Int("items", out.Summary.ItemCount),
			zap.Int("failed", out.Summary.FailedCount),
		)
		return writeJSON(out)
	}

	amount, err := decimal.NewFromString(opts.amount)
	if err != nil {
		return fmt.Errorf("invalid -amount: %w", err)
	}
	if opts.sellerState, err = canonicalState(ctx, states, opts.sellerState); err != nil {
		return fmt.Errorf("invalid -seller: %w", err)
	}
	if opts.buyerState, err = canonicalState(ctx, states, opts.buyerState); err != nil {
		return fmt.Errorf("invalid -buyer: %w", err)
	}
	business := taxratedomain.BusinessType(opts.businessType)
	spec := gstdomain.TransactionTaxSpec(opts.taxSpec)
	if spec == "" {
		spec = gstdomain.DetermineTaxSpec(business, opts.sellerState, opts.buyerState)
	}

	out, err := engine.ComputeTax(ctx, gstdomain.ComputeRequest{
		BaseAmount:         amount,
		Quantity:           opts.quantity,
		ClassificationCode: opts.classificationCode,
		BusinessType:       business,
		BuyerStateCode:     opts.buyerState,
		SellerStateCode:    opts.sellerState,
		AsOf:               asOf,
		TaxSpec:            spec,
		Strategy:           gstdomain.RateResolutionStrategy(opts.strategy),
	})
	if err != nil {
		var ce *gstdomain.ComputationError
		if errors.As(err, &ce) {
			log.Warn("computation rejected", zap.String("kind", ce.Kind.Error()), zap.Error(err))
		}
		return err
	}
	log.Info("computation done",
		zap.String("classification_code", out.ClassificationCode),
		zap.String("total_tax", out.TotalTaxAmount.String()),
	)
	return writeJSON(out)
}

// canonicalState maps a numeric GSTIN state prefix to its two-letter code.
// Letter codes pass through unchanged.
func canonicalState(ctx context.Context, states referencedomain.Repository, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.IndexFunc(code, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return code, nil
	}
	state, err := states.FindState(ctx, code)
	if err != nil {
		return "", fmt.Errorf("state %s: %w", code, err)
	}
	return state.Code, nil
}

func readBulkRequest(path string) (gstdomain.BulkRequest, error) {
	var req gstdomain.BulkRequest
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read bulk request: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode bulk request: %w", err)
	}
	return req, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

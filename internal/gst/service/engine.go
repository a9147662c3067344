package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gstengine/internal/config"
	gstdomain "github.com/smallbiznis/gstengine/internal/gst/domain"
	hsndomain "github.com/smallbiznis/gstengine/internal/hsn/domain"
	"github.com/smallbiznis/gstengine/internal/observability/logger"
	"github.com/smallbiznis/gstengine/internal/observability/metrics"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "github.com/smallbiznis/gstengine/internal/gst"

type EngineParams struct {
	fx.In

	Log      *zap.Logger
	Tree     hsndomain.TreeSource
	Resolver taxratedomain.Resolver
	Policy   config.PolicyProvider
	Metrics  *metrics.Metrics `optional:"true"`
}

type engine struct {
	log      *zap.Logger
	tree     hsndomain.TreeSource
	resolver taxratedomain.Resolver
	policy   config.PolicyProvider
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewEngine(p EngineParams) gstdomain.Engine {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &engine{
		log:      log.Named("gst.engine"),
		tree:     p.Tree,
		resolver: p.Resolver,
		policy:   p.Policy,
		metrics:  p.Metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

func (e *engine) ComputeTax(ctx context.Context, req gstdomain.ComputeRequest) (*gstdomain.Computation, error) {
	started := time.Now()
	ctx, span := e.tracer.Start(ctx, "gst.ComputeTax", trace.WithAttributes(
		attribute.String("gst.classification_code", req.ClassificationCode),
		attribute.String("gst.tax_spec", string(req.TaxSpec)),
	))
	defer span.End()

	out, err := e.compute(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
		if kind := gstdomain.KindOf(err); kind != nil {
			status = kind.Error()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	e.metrics.RecordComputation(ctx, string(req.TaxSpec), status, time.Since(started))
	return out, err
}

func (e *engine) compute(ctx context.Context, raw gstdomain.ComputeRequest) (*gstdomain.Computation, error) {
	log := logger.WithContext(ctx, e.log)

	req, err := raw.Normalize()
	if err != nil {
		return nil, err
	}

	// One snapshot per computation; a policy reload never applies mid-flight.
	policy := e.policy.Get()
	strategy := req.Strategy
	if strategy == "" {
		strategy = policy.Strategy
	}

	path, err := e.classify(ctx, req)
	if err != nil {
		log.Warn("classification rejected",
			zap.String("classification_code", req.ClassificationCode),
			zap.Error(err),
		)
		return nil, err
	}

	taxable := req.BaseAmount.Mul(decimal.NewFromInt(req.Quantity))
	c := &computation{
		engine:   e,
		req:      req,
		policy:   policy,
		zones:    taxratedomain.NewZoneDirectory(policy.Zones),
		scale:    policy.RoundingScale,
		strategy: strategy,
		taxable:  taxable,
		out: &gstdomain.Computation{
			ClassificationCode: req.ClassificationCode,
			ClassificationPath: path,
			TaxSpec:            req.TaxSpec,
			Strategy:           strategy,
			AsOf:               req.AsOf,
			Quantity:           req.Quantity,
			TaxableAmount:      taxable,
			Components:         []gstdomain.TaxComponentResult{},
			Notes:              []string{req.TaxSpec.Label()},
		},
	}

	switch req.TaxSpec {
	case gstdomain.TaxSpecInter:
		err = c.inter(ctx)
	case gstdomain.TaxSpecIntra:
		err = c.intra(ctx)
	case gstdomain.TaxSpecComposition:
		err = c.composition(ctx)
	}
	if err == nil && !req.TaxSpec.IsZeroRated() {
		err = c.cess(ctx)
	}
	if err != nil {
		if errors.Is(err, gstdomain.ErrRateNotFound) {
			log.Warn("rate not found",
				zap.String("classification_code", req.ClassificationCode),
				zap.String("tax_spec", string(req.TaxSpec)),
				zap.Time("as_of", req.AsOf),
				zap.Error(err),
			)
		}
		return nil, err
	}

	return c.finish(), nil
}

// classify checks the code against the tree snapshot and returns its display path.
// Broken rows elsewhere in the tree do not affect an intact code.
func (e *engine) classify(ctx context.Context, req gstdomain.ComputeRequest) (string, error) {
	tree, err := e.tree.Tree(ctx)
	if err != nil {
		return "", fmt.Errorf("load classification tree: %w", err)
	}
	if _, err := tree.Require(req.ClassificationCode, req.AsOf); err != nil {
		return "", gstdomain.NewInvalidClassification(req.ClassificationCode, err)
	}
	return tree.FullPath(req.ClassificationCode)
}

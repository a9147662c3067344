package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  taxratedomain.Repository
	Cache taxratedomain.RateCache
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  taxratedomain.Repository
	cache taxratedomain.RateCache
}

func NewService(p serviceParams) taxratedomain.Service {
	return &Service{
		log:   p.Log.Named("taxrate.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

// CreateRate stores a new version. VersionNumber continues the sequence of
// the versions already stored for the same code, component, business type and zone.
func (s *Service) CreateRate(ctx context.Context, req taxratedomain.CreateRateRequest) (*taxratedomain.TaxRateRecord, error) {
	code := strings.TrimSpace(req.ClassificationCode)
	if code == "" {
		return nil, taxratedomain.ErrInvalidClassificationCode
	}
	component := taxratedomain.ComponentType(strings.ToUpper(strings.TrimSpace(string(req.ComponentType))))
	business := taxratedomain.BusinessType(strings.ToUpper(strings.TrimSpace(string(req.BusinessType))))
	zone := req.Zone
	if zone.IsNationwide() {
		zone = taxratedomain.ZoneAllIndia
	}

	var notification *string
	if n := strings.TrimSpace(req.NotificationNumber); n != "" {
		notification = &n
	}

	now := time.Now().UTC()
	record := &taxratedomain.TaxRateRecord{
		ID:                            s.genID.Generate(),
		ClassificationCode:            code,
		ComponentType:                 component,
		BusinessType:                  business,
		Zone:                          zone,
		EffectiveFrom:                 taxratedomain.Date(req.EffectiveFrom),
		RatePercentage:                req.RatePercentage,
		FixedAmountPerUnit:            req.FixedAmountPerUnit,
		MinimumAmount:                 req.MinimumAmount,
		MaximumAmount:                 req.MaximumAmount,
		Active:                        true,
		IsReverseChargeApplicable:     req.IsReverseChargeApplicable,
		IsCompositionSchemeApplicable: req.IsCompositionSchemeApplicable,
		NotificationNumber:            notification,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
	if req.EffectiveTo != nil {
		to := taxratedomain.Date(*req.EffectiveTo)
		record.EffectiveTo = &to
	}
	if req.Conditions != nil {
		record.Conditions = datatypes.JSONMap(req.Conditions)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	version, err := s.nextVersion(ctx, record)
	if err != nil {
		return nil, err
	}
	record.VersionNumber = version

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	s.invalidate(ctx, record)

	s.log.Info("rate version created",
		zap.Stringer("rate_id", record.ID),
		zap.String("classification_code", record.ClassificationCode),
		zap.String("component", string(record.ComponentType)),
		zap.Int("version", record.VersionNumber),
	)
	return record, nil
}

// CloseRate ends a version's window at effectiveTo and returns the updated record.
func (s *Service) CloseRate(ctx context.Context, id snowflake.ID, effectiveTo time.Time) (*taxratedomain.TaxRateRecord, error) {
	if err := s.repo.CloseVersion(ctx, id, effectiveTo); err != nil {
		return nil, err
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, taxratedomain.ErrNotFound
	}
	s.invalidate(ctx, record)

	s.log.Info("rate version closed",
		zap.Stringer("rate_id", record.ID),
		zap.String("classification_code", record.ClassificationCode),
		zap.Time("effective_to", taxratedomain.Date(effectiveTo)),
	)
	return record, nil
}

func (s *Service) nextVersion(ctx context.Context, record *taxratedomain.TaxRateRecord) (int, error) {
	existing, err := s.repo.FindCandidates(ctx, record.ClassificationCode, record.ComponentType)
	if err != nil {
		return 0, err
	}
	version := 0
	for _, rec := range existing {
		if rec.BusinessType == record.BusinessType &&
			strings.EqualFold(string(rec.Zone), string(record.Zone)) &&
			rec.VersionNumber > version {
			version = rec.VersionNumber
		}
	}
	return version + 1, nil
}

// invalidate never fails the write; a stale entry expires with the cache TTL.
func (s *Service) invalidate(ctx context.Context, record *taxratedomain.TaxRateRecord) {
	if err := s.cache.Invalidate(ctx, record.ClassificationCode, record.ComponentType); err != nil {
		s.log.Warn("rate cache invalidation failed",
			zap.String("classification_code", record.ClassificationCode),
			zap.String("component", string(record.ComponentType)),
			zap.Error(err),
		)
	}
}

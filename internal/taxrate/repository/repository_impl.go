package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"github.com/smallbiznis/gstengine/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) taxratedomain.Repository {
	return &repository{db: conn}
}

func (r *repository) FindCandidates(ctx context.Context, classificationCode string, component taxratedomain.ComponentType) ([]taxratedomain.TaxRateRecord, error) {
	var items []taxratedomain.TaxRateRecord
	err := r.db.WithContext(ctx).
		Where("classification_code = ? AND component_type = ?", classificationCode, component).
		Order("effective_from DESC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Create(ctx context.Context, record *taxratedomain.TaxRateRecord) error {
	if record.Zone == "" {
		record.Zone = taxratedomain.ZoneAllIndia
	}
	if err := record.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Create(record).Error
	if db.IsDuplicateKeyErr(err) {
		return taxratedomain.ErrDuplicateVersion
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*taxratedomain.TaxRateRecord, error) {
	var rec taxratedomain.TaxRateRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// CloseVersion ends a version's window; the record stays for historical computations.
func (r *repository) CloseVersion(ctx context.Context, id snowflake.ID, effectiveTo time.Time) error {
	rec, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return taxratedomain.ErrNotFound
	}

	to := taxratedomain.Date(effectiveTo)
	if !to.After(taxratedomain.Date(rec.EffectiveFrom)) {
		return taxratedomain.ErrInvalidEffectiveWindow
	}

	return r.db.WithContext(ctx).
		Model(&taxratedomain.TaxRateRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"effective_to": to,
			"updated_at":   time.Now().UTC(),
		}).Error
}

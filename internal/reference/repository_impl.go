package reference

import (
	"context"
	"strings"

	"github.com/smallbiznis/gstengine/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListStates(ctx context.Context) ([]domain.State, error) {
	var states []domain.State
	err := r.db.WithContext(ctx).
		Raw(`SELECT code, gst_code, name, union_territory, created_at FROM states ORDER BY gst_code`).
		Scan(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (r *repository) FindState(ctx context.Context, code string) (*domain.State, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrStateNotFound
	}

	var states []domain.State
	err := r.db.WithContext(ctx).
		Raw(`SELECT code, gst_code, name, union_territory, created_at FROM states WHERE code = ? OR gst_code = ? LIMIT 1`, code, code).
		Scan(&states).Error
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, domain.ErrStateNotFound
	}
	return &states[0], nil
}

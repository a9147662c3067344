package repository

import (
	"context"
	"errors"
	"strings"

	hsndomain "github.com/smallbiznis/gstengine/internal/hsn/domain"
	"github.com/smallbiznis/gstengine/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) hsndomain.Repository {
	return &repository{db: conn}
}

func (r *repository) List(ctx context.Context) ([]hsndomain.ClassificationCode, error) {
	var items []hsndomain.ClassificationCode
	err := r.db.WithContext(ctx).
		Order("level ASC").
		Order("code ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*hsndomain.ClassificationCode, error) {
	var item hsndomain.ClassificationCode
	err := r.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) Create(ctx context.Context, code *hsndomain.ClassificationCode) error {
	code.Code = strings.TrimSpace(code.Code)
	if code.Code == "" {
		return hsndomain.ErrInvalidCodeText
	}
	err := r.db.WithContext(ctx).Create(code).Error
	switch {
	case db.IsDuplicateKeyErr(err):
		return hsndomain.ErrDuplicateCode
	case db.IsForeignKeyErr(err):
		return hsndomain.ErrBrokenParent
	}
	return err
}

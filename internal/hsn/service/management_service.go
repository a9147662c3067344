package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	hsndomain "github.com/smallbiznis/gstengine/internal/hsn/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  hsndomain.Repository
	Tree  hsndomain.TreeSource
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  hsndomain.Repository
	tree  hsndomain.TreeSource
}

func NewService(p serviceParams) hsndomain.Service {
	return &Service{
		log:   p.Log.Named("hsn.service"),
		genID: p.GenID,
		repo:  p.Repo,
		tree:  p.Tree,
	}
}

func (s *Service) AddCode(ctx context.Context, req hsndomain.AddCodeRequest) (*hsndomain.ClassificationCode, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || strings.ContainsAny(code, " \t") {
		return nil, hsndomain.ErrInvalidCodeText
	}
	if req.EffectiveFrom != nil && req.EffectiveTo != nil && !req.EffectiveTo.After(*req.EffectiveFrom) {
		return nil, hsndomain.ErrInvalidWindow
	}

	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, hsndomain.ErrDuplicateCode
	}

	now := time.Now().UTC()
	item := &hsndomain.ClassificationCode{
		ID:            s.genID.Generate(),
		Code:          code,
		Level:         1,
		Description:   strings.TrimSpace(req.Description),
		Active:        true,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if parentCode := strings.TrimSpace(req.ParentCode); parentCode != "" {
		parent, err := s.repo.FindByCode(ctx, parentCode)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("%w: parent %s of %s", hsndomain.ErrBrokenParent, parentCode, code)
		}
		id := parent.ID
		item.ParentID = &id
		item.Level = parent.Level + 1
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.tree.Invalidate()

	s.log.Info("classification code added",
		zap.String("classification_code", item.Code),
		zap.Int("level", item.Level),
	)
	return item, nil
}

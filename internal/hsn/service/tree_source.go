package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/gstengine/internal/cache"
	"github.com/smallbiznis/gstengine/internal/clock"
	hsndomain "github.com/smallbiznis/gstengine/internal/hsn/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	treeCacheKey   = "hsn:tree"
	DefaultTreeTTL = 10 * time.Minute
)

type TreeSourceParams struct {
	fx.In

	Log   *zap.Logger
	Repo  hsndomain.Repository
	Clock clock.Clock
}

// treeSource builds the validated tree from storage and keeps it for
// DefaultTreeTTL. Concurrent misses share one load.
type treeSource struct {
	log   *zap.Logger
	repo  hsndomain.Repository
	cache cache.Cache[string, *hsndomain.Tree]
	group singleflight.Group
	ttl   time.Duration
}

func NewTreeSource(p TreeSourceParams) hsndomain.TreeSource {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &treeSource{
		log:   log.Named("hsn.tree"),
		repo:  p.Repo,
		cache: cache.NewTTLCache[string, *hsndomain.Tree](p.Clock),
		ttl:   DefaultTreeTTL,
	}
}

func (s *treeSource) Tree(ctx context.Context) (*hsndomain.Tree, error) {
	if tree, ok := s.cache.Get(treeCacheKey); ok {
		return tree, nil
	}

	// The load is shared by every waiter, so one caller's cancellation must not fail the rest.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(treeCacheKey, func() (any, error) {
		codes, err := s.repo.List(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("load classification codes: %w", err)
		}
		tree := hsndomain.NewTree(codes)
		for _, problem := range tree.Problems() {
			s.log.Warn("classification row unusable", zap.Error(problem))
		}
		s.cache.Set(treeCacheKey, tree, s.ttl)
		s.log.Debug("classification tree loaded",
			zap.Int("nodes", tree.Len()),
			zap.Int("problems", len(tree.Problems())),
		)
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*hsndomain.Tree), nil
}

// Invalidate drops the cached snapshot so the next call reloads.
func (s *treeSource) Invalidate() {
	s.cache.Delete(treeCacheKey)
}

// StaticTreeSource serves a fixed tree, for tests and one-shot tooling.
type StaticTreeSource struct {
	T *hsndomain.Tree
}

func (s StaticTreeSource) Tree(context.Context) (*hsndomain.Tree, error) {
	return s.T, nil
}

func (StaticTreeSource) Invalidate() {}

package domain

import "context"

type Repository interface {
	List(ctx context.Context) ([]ClassificationCode, error)
	FindByCode(ctx context.Context, code string) (*ClassificationCode, error)
	Create(ctx context.Context, code *ClassificationCode) error
}

// TreeSource hands out the current validated tree snapshot.
type TreeSource interface {
	Tree(ctx context.Context) (*Tree, error)
	// Invalidate drops any cached snapshot so the next Tree call reloads.
	Invalidate()
}

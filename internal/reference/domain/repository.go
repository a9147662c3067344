package domain

import (
	"context"
	"errors"
)

var ErrStateNotFound = errors.New("state_not_found")

type Repository interface {
	ListStates(ctx context.Context) ([]State, error)
	// FindState accepts either the two-letter code or the numeric GSTIN prefix.
	FindState(ctx context.Context, code string) (*State, error)
}

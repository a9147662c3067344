package domain

import (
	"context"
	"time"
)

// AddCodeRequest places a new code under ParentCode; an empty parent makes a chapter.
type AddCodeRequest struct {
	Code          string
	ParentCode    string
	Description   string
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

// Service maintains the classification table. Writes drop the cached tree
// snapshot so the next computation sees them.
type Service interface {
	AddCode(ctx context.Context, req AddCodeRequest) (*ClassificationCode, error)
}

package domain

import "context"

// Engine computes GST breakdowns. Implementations are safe for concurrent use.
type Engine interface {
	ComputeTax(ctx context.Context, req ComputeRequest) (*Computation, error)
	ComputeBulk(ctx context.Context, req BulkRequest) (*BulkComputation, error)
}

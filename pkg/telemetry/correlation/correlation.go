// Package correlation tags one engine run with a ULID so the CLI, the
// engine and bulk workers log under the same id.
package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const FieldName = "correlation_id"

type ctxKey struct{}

// New returns a fresh, time-ordered id.
func New() string {
	return ulid.Make().String()
}

// From returns the id carried by ctx, or "".
func From(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// With attaches id to ctx. An empty id leaves ctx unchanged.
func With(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// Ensure keeps an existing id or attaches a new one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := From(ctx); id != "" {
		return ctx, id
	}
	id := New()
	return With(ctx, id), id
}

// Field is the zap field for the id on ctx; zap.Skip when there is none.
func Field(ctx context.Context) zap.Field {
	id := From(ctx)
	if id == "" {
		return zap.Skip()
	}
	return zap.String(FieldName, id)
}

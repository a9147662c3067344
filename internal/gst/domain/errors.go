package domain

import (
	"errors"
	"fmt"
	"strings"

	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
)

var (
	ErrRateNotFound          = errors.New("rate_not_found")
	ErrInvalidClassification = errors.New("invalid_classification")
	ErrInvalidInput          = errors.New("invalid_input")
)

// ComputationError is the typed failure of a computation. Kind is one of the
// sentinels above; Cause carries the underlying error when there is one.
type ComputationError struct {
	Kind      error
	Component taxratedomain.ComponentType
	Field     string
	Detail    string
	Cause     error
}

func (e *ComputationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Component != "" {
		fmt.Fprintf(&b, " component=%s", e.Component)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ComputationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewRateNotFound(component taxratedomain.ComponentType, detail string) *ComputationError {
	return &ComputationError{Kind: ErrRateNotFound, Component: component, Detail: detail}
}

func NewInvalidClassification(code string, cause error) *ComputationError {
	return &ComputationError{Kind: ErrInvalidClassification, Field: "classification_code", Detail: code, Cause: cause}
}

func NewInvalidInput(field, detail string) *ComputationError {
	return &ComputationError{Kind: ErrInvalidInput, Field: field, Detail: detail}
}

// KindOf returns the sentinel kind of err, or nil when err is not a ComputationError.
func KindOf(err error) error {
	var ce *ComputationError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return nil
}

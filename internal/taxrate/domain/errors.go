package domain

import "errors"

var (
	ErrInvalidClassificationCode = errors.New("invalid_classification_code")
	ErrInvalidComponentType      = errors.New("invalid_component_type")
	ErrInvalidBusinessType       = errors.New("invalid_business_type")
	ErrInvalidRate               = errors.New("invalid_rate")
	ErrInvalidAmount             = errors.New("invalid_amount")
	ErrInvalidClamp              = errors.New("invalid_clamp")
	ErrInvalidEffectiveWindow    = errors.New("invalid_effective_window")
	ErrDuplicateVersion          = errors.New("duplicate_rate_version")
	ErrNotFound                  = errors.New("not_found")
)

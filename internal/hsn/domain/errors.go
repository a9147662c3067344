package domain

import "errors"

var (
	ErrCodeNotFound    = errors.New("classification_code_not_found")
	ErrCodeInactive    = errors.New("classification_code_inactive")
	ErrDuplicateCode   = errors.New("duplicate_classification_code")
	ErrDuplicateID     = errors.New("duplicate_classification_id")
	ErrBrokenParent    = errors.New("broken_parent_reference")
	ErrCycle           = errors.New("classification_cycle")
	ErrLevelMismatch   = errors.New("classification_level_mismatch")
	ErrInvalidCodeText = errors.New("invalid_classification_code")
	ErrInvalidWindow   = errors.New("invalid_effective_window")
)

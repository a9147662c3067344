package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ClassificationCode is one node of the HSN hierarchy
// (chapter > heading > sub-heading > tariff item). ParentID is a key into the
// same table, never an owning reference.
type ClassificationCode struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code          string        `gorm:"type:text;not null;uniqueIndex" json:"code"`
	ParentID      *snowflake.ID `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
	Level         int           `gorm:"not null" json:"level"`
	Description   string        `gorm:"type:text" json:"description"`
	Active        bool          `gorm:"not null" json:"active"`
	EffectiveFrom *time.Time    `gorm:"column:effective_from" json:"effective_from,omitempty"`
	EffectiveTo   *time.Time    `gorm:"column:effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ClassificationCode) TableName() string { return "hsn_codes" }

// IsValidFor reports whether the code is usable on the given instant.
func (c ClassificationCode) IsValidFor(at time.Time) bool {
	if !c.Active {
		return false
	}
	if c.EffectiveFrom != nil && at.Before(*c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && !at.Before(*c.EffectiveTo) {
		return false
	}
	return true
}

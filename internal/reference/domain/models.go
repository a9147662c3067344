package domain

import "time"

// State is a GST state or Union Territory. Code is the two-letter
// abbreviation the engine works with; GSTCode is the numeric prefix of a GSTIN.
type State struct {
	Code           string    `json:"code" gorm:"type:char(2);primaryKey;column:code"`
	GSTCode        string    `json:"gst_code" gorm:"type:char(2);not null;uniqueIndex:uk_states_gst_code;column:gst_code"`
	Name           string    `json:"name" gorm:"type:text;not null"`
	UnionTerritory bool      `json:"union_territory" gorm:"column:union_territory;not null"`
	CreatedAt      time.Time `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (State) TableName() string { return "states" }

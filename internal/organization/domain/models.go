// Package domain holds the restaurant profile kept per organization.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Organization is the restaurant behind an X-Org-ID. A missing row means the
// profile was never filled in and every setting falls back to its default.
type Organization struct {
	ID        int64               `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name      string              `json:"name" gorm:"type:text;not null"`
	Slug      string              `json:"slug" gorm:"type:text;not null"`
	TargetCMV decimal.NullDecimal `json:"target_cmv" gorm:"column:target_cmv;type:numeric(5,2)"`
	CreatedAt time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time           `json:"updated_at" gorm:"not null"`
}

func (Organization) TableName() string { return "organizations" }

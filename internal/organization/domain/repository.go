package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindByID returns nil without error when the org has no profile yet.
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Organization, error)
	Upsert(ctx context.Context, db *gorm.DB, org *Organization) error
}

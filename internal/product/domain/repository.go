package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Name     string
	Category string
	Active   *bool
	LowStock bool
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]Product, error)
	// FindByIDsForShare is FindByIDs holding a shared row lock until the
	// surrounding transaction ends, so prices cannot change mid-write.
	FindByIDsForShare(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, orgID int64, filter ListFilter) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id int64) error
	CountRecipeReferences(ctx context.Context, db *gorm.DB, orgID, id int64) (int64, error)
	InsertPriceChange(ctx context.Context, db *gorm.DB, change *PriceChange) error
	ListPriceChanges(ctx context.Context, db *gorm.DB, orgID, productID int64) ([]PriceChange, error)
}

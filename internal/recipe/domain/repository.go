package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Name     string
	Category string
	Active   *bool
	Sort     SortOrder
}

// SortOrder orders a recipe list. Cost orders read the persisted snapshot and
// put recipes without one last.
type SortOrder string

const (
	SortByName          SortOrder = "name"
	SortByTotalCost     SortOrder = "total_cost"
	SortByTotalCostDesc SortOrder = "-total_cost"
	SortByCMV           SortOrder = "cmv"
	SortByCMVDesc       SortOrder = "-cmv"
)

func (o SortOrder) Valid() bool {
	switch o {
	case SortByName, SortByTotalCost, SortByTotalCostDesc, SortByCMV, SortByCMVDesc:
		return true
	default:
		return false
	}
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, recipe *Recipe) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*Recipe, error)
	FindByIDs(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]Recipe, error)
	List(ctx context.Context, db *gorm.DB, orgID int64, filter ListFilter) ([]Recipe, error)
	Update(ctx context.Context, db *gorm.DB, recipe *Recipe) error
	UpdateSnapshot(ctx context.Context, db *gorm.DB, orgID, id int64, snapshot Snapshot) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id int64) error

	ReplaceIngredients(ctx context.Context, db *gorm.DB, recipeID int64, ingredients []Ingredient) error
	ListIngredients(ctx context.Context, db *gorm.DB, recipeIDs []int64) ([]Ingredient, error)
	FindRecipeIDsByProducts(ctx context.Context, db *gorm.DB, orgID int64, productIDs []int64) ([]int64, error)
}

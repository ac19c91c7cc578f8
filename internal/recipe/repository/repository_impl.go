package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/recipecost/internal/recipe/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, recipe *domain.Recipe) error {
	return db.WithContext(ctx).Create(recipe).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*domain.Recipe, error) {
	var item domain.Recipe
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]domain.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Recipe
	err := db.WithContext(ctx).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID int64, filter domain.ListFilter) ([]domain.Recipe, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("org_id = ?", orgID)

	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	switch filter.Sort {
	case domain.SortByTotalCost:
		stmt = orderNullsLast(stmt, "total_cost", "ASC")
	case domain.SortByTotalCostDesc:
		stmt = orderNullsLast(stmt, "total_cost", "DESC")
	case domain.SortByCMV:
		stmt = orderNullsLast(stmt, "cmv_percentage", "ASC")
	case domain.SortByCMVDesc:
		stmt = orderNullsLast(stmt, "cmv_percentage", "DESC")
	}

	var items []domain.Recipe
	if err := stmt.Order("name ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// orderNullsLast is spelled with CASE because mysql has no NULLS LAST.
func orderNullsLast(stmt *gorm.DB, column, dir string) *gorm.DB {
	return stmt.
		Order("CASE WHEN " + column + " IS NULL THEN 1 ELSE 0 END").
		Order(column + " " + dir)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, recipe *domain.Recipe) error {
	if recipe == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE recipes
		 SET name = ?, description = ?, category = ?, prep_time_minutes = ?, portion_count = ?,
		     desired_margin = ?, suggested_sale_price = ?, version = ?, active = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		recipe.Name,
		recipe.Description,
		recipe.Category,
		recipe.PrepTimeMinutes,
		recipe.PortionCount,
		recipe.DesiredMargin,
		recipe.SuggestedSalePrice,
		recipe.Version,
		recipe.Active,
		recipe.UpdatedAt,
		recipe.OrgID,
		recipe.ID,
	).Error
}

func (r *repo) UpdateSnapshot(ctx context.Context, db *gorm.DB, orgID, id int64, snapshot domain.Snapshot) error {
	return db.WithContext(ctx).Exec(
		`UPDATE recipes
		 SET total_cost = ?, cost_per_portion = ?, cmv_percentage = ?, cost_error = ?, costed_at = ?
		 WHERE org_id = ? AND id = ?`,
		snapshot.TotalCost,
		snapshot.CostPerPortion,
		snapshot.CMVPercentage,
		snapshot.CostError,
		snapshot.CostedAt,
		orgID,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id int64) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM recipe_ingredients
		 WHERE recipe_id IN (SELECT id FROM recipes WHERE org_id = ? AND id = ?)`,
		orgID,
		id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM recipes WHERE org_id = ? AND id = ?`, orgID, id).Error
}

func (r *repo) ReplaceIngredients(ctx context.Context, db *gorm.DB, recipeID int64, ingredients []domain.Ingredient) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipeID).Error; err != nil {
		return err
	}
	if len(ingredients) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&ingredients).Error
}

func (r *repo) ListIngredients(ctx context.Context, db *gorm.DB, recipeIDs []int64) ([]domain.Ingredient, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}
	var items []domain.Ingredient
	err := db.WithContext(ctx).
		Where("recipe_id IN ?", recipeIDs).
		Order("recipe_id ASC").
		Order("position ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) FindRecipeIDsByProducts(ctx context.Context, db *gorm.DB, orgID int64, productIDs []int64) ([]int64, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT r.id FROM recipes r
		 JOIN recipe_ingredients ri ON ri.recipe_id = r.id
		 WHERE r.org_id = ? AND ri.product_id IN ?
		 ORDER BY r.id`,
		orgID,
		productIDs,
	).Scan(&ids).Error
	return ids, err
}

package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/recipecost/internal/product/domain"
	"gorm.io/gorm"
)

const productColumns = `id, org_id, code, name, description, category, supplier, unit, unit_price,
	average_cost, stock, min_stock, active, metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.OrgID,
		product.Code,
		product.Name,
		product.Description,
		product.Category,
		product.Supplier,
		product.Unit,
		product.UnitPrice,
		product.AverageCost,
		product.Stock,
		product.MinStock,
		product.Active,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]domain.Product, error) {
	return r.findByIDs(ctx, db, orgID, ids, "")
}

func (r *repo) FindByIDsForShare(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]domain.Product, error) {
	return r.findByIDs(ctx, db, orgID, ids, shareLockSuffix(db))
}

func (r *repo) findByIDs(ctx context.Context, db *gorm.DB, orgID int64, ids []int64, suffix string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE org_id = ? AND id IN ?`+suffix,
		orgID,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// shareLockSuffix returns the shared-lock clause for the connected database.
// SQLite serializes writers on the whole file and has no row locks.
func shareLockSuffix(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return " FOR SHARE"
	default:
		return ""
	}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID int64, filter domain.ListFilter) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
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
	if filter.LowStock {
		stmt = stmt.Where("min_stock > 0 AND stock <= min_stock")
	}

	if err := stmt.Order("name ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, description = ?, category = ?, supplier = ?, unit = ?, unit_price = ?,
		     average_cost = ?, stock = ?, min_stock = ?, active = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		product.Name,
		product.Description,
		product.Category,
		product.Supplier,
		product.Unit,
		product.UnitPrice,
		product.AverageCost,
		product.Stock,
		product.MinStock,
		product.Active,
		product.Metadata,
		product.UpdatedAt,
		product.OrgID,
		product.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id int64) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM product_price_changes WHERE org_id = ? AND product_id = ?`, orgID, id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM products WHERE org_id = ? AND id = ?`, orgID, id,
	).Error
}

func (r *repo) CountRecipeReferences(ctx context.Context, db *gorm.DB, orgID, id int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM recipe_ingredients ri
		 JOIN recipes r ON r.id = ri.recipe_id
		 WHERE r.org_id = ? AND ri.product_id = ?`,
		orgID,
		id,
	).Scan(&count).Error
	return count, err
}

func (r *repo) InsertPriceChange(ctx context.Context, db *gorm.DB, change *domain.PriceChange) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO product_price_changes
		 (id, org_id, product_id, previous_price, new_price, previous_unit, new_unit, source, purchase_id, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.OrgID,
		change.ProductID,
		change.PreviousPrice,
		change.NewPrice,
		change.PreviousUnit,
		change.NewUnit,
		change.Source,
		change.PurchaseID,
		change.ChangedAt,
	).Error
}

func (r *repo) ListPriceChanges(ctx context.Context, db *gorm.DB, orgID, productID int64) ([]domain.PriceChange, error) {
	var items []domain.PriceChange
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, product_id, previous_price, new_price, previous_unit, new_unit, source, purchase_id, changed_at
		 FROM product_price_changes
		 WHERE org_id = ? AND product_id = ?
		 ORDER BY changed_at ASC, id ASC`,
		orgID,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

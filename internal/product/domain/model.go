package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/costing"
	"gorm.io/datatypes"
)

type Product struct {
	ID          int64               `json:"id" gorm:"primaryKey"`
	OrgID       int64               `json:"organization_id" gorm:"column:org_id;not null;uniqueIndex:ux_products_org_code,priority:1"`
	Code        string              `json:"code" gorm:"type:text;not null;uniqueIndex:ux_products_org_code,priority:2"`
	Name        string              `json:"name" gorm:"type:text;not null"`
	Description *string             `json:"description,omitempty" gorm:"type:text"`
	Category    *string             `json:"category,omitempty" gorm:"type:text"`
	Supplier    *string             `json:"supplier,omitempty" gorm:"type:text"`
	Unit        string              `json:"unit" gorm:"type:text;not null"`
	UnitPrice   decimal.Decimal     `json:"unit_price" gorm:"type:numeric(18,4);not null;default:0"`
	AverageCost decimal.NullDecimal `json:"average_cost" gorm:"type:numeric(18,4)"`
	Stock       decimal.Decimal     `json:"stock" gorm:"type:numeric(18,4);not null;default:0"`
	MinStock    decimal.Decimal     `json:"min_stock" gorm:"column:min_stock;type:numeric(18,4);not null;default:0"`
	Active      bool                `json:"active" gorm:"not null;default:true"`
	Metadata    datatypes.JSONMap   `json:"metadata,omitempty"`
	CreatedAt   time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time           `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// Costing returns the view of the product the costing engine prices against.
func (p Product) Costing() costing.Product {
	return costing.Product{
		ID:        IDString(p.ID),
		Name:      p.Name,
		Unit:      p.Unit,
		UnitPrice: p.UnitPrice,
		Active:    p.Active,
	}
}

// PriceSource records what caused a price change.
type PriceSource string

const (
	PriceSourceManual   PriceSource = "manual"
	PriceSourcePurchase PriceSource = "purchase"
)

// PriceChange is one row of a product's price history.
type PriceChange struct {
	ID            int64           `gorm:"primaryKey"`
	OrgID         int64           `gorm:"column:org_id;not null;index:ix_price_changes_product,priority:1"`
	ProductID     int64           `gorm:"column:product_id;not null;index:ix_price_changes_product,priority:2"`
	PreviousPrice decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	NewPrice      decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	PreviousUnit  string          `gorm:"type:text;not null"`
	NewUnit       string          `gorm:"type:text;not null"`
	Source        PriceSource     `gorm:"type:text;not null"`
	PurchaseID    *int64          `gorm:"column:purchase_id"`
	ChangedAt     time.Time       `gorm:"not null;index:ix_price_changes_product,priority:3"`
}

func (PriceChange) TableName() string { return "product_price_changes" }

// NewLookup adapts loaded products to the costing engine's lookup contract.
func NewLookup(products []Product) costing.ProductLookup {
	items := make([]costing.Product, 0, len(products))
	for _, p := range products {
		items = append(items, p.Costing())
	}
	return costing.LookupFromSlice(items)
}

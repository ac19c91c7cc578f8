package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a supplier invoice. Subtotal and Total are derived from the items
// at write time and stored as issued.
type Purchase struct {
	ID            int64           `gorm:"primaryKey"`
	OrgID         int64           `gorm:"column:org_id;not null;index:ix_purchases_org_date,priority:1"`
	SupplierName  string          `gorm:"type:text;not null"`
	PurchaseDate  time.Time       `gorm:"not null;index:ix_purchases_org_date,priority:2"`
	InvoiceNumber *string         `gorm:"type:text"`
	Discount      decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Taxes         decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Total         decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Notes         *string         `gorm:"type:text"`
	PricesApplied bool            `gorm:"column:prices_applied;not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

func (Purchase) TableName() string { return "purchases" }

type Item struct {
	ID         int64           `gorm:"primaryKey"`
	PurchaseID int64           `gorm:"column:purchase_id;not null;index:ix_purchase_items_purchase,priority:1"`
	ProductID  int64           `gorm:"column:product_id;not null;index"`
	Position   int             `gorm:"not null;index:ix_purchase_items_purchase,priority:2"`
	Quantity   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
}

func (Item) TableName() string { return "purchase_items" }

// Totals computes subtotal = Σ qty × price and total = subtotal − discount + taxes.
func Totals(items []Item, discount, taxes decimal.Decimal) (subtotal, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return subtotal, subtotal.Sub(discount).Add(taxes)
}

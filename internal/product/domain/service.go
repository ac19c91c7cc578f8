package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/costing"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Archive(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
	PriceHistory(ctx context.Context, id string) ([]PriceChangeResponse, error)

	// ApplyPurchase runs inside the caller's transaction.
	ApplyPurchase(ctx context.Context, tx *gorm.DB, orgID, purchaseID int64, items []PurchasedItem) error
}

// SnapshotRecalculator re-derives the persisted cost snapshot of every recipe
// that references one of productIDs. It runs inside the caller's transaction.
type SnapshotRecalculator interface {
	RecalculateForProducts(ctx context.Context, tx *gorm.DB, orgID int64, productIDs []int64, kinds ...costing.ChangeKind) (int, error)
}

type ListRequest struct {
	Name     string
	Category string
	Active   *bool
	LowStock bool
}

type CreateRequest struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Supplier    *string          `json:"supplier"`
	Unit        string           `json:"unit"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Stock       *decimal.Decimal `json:"stock"`
	MinStock    *decimal.Decimal `json:"min_stock"`
	Active      *bool            `json:"active"`
	Metadata    map[string]any   `json:"metadata"`
}

type UpdateRequest struct {
	ID          string           `json:"-"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Supplier    *string          `json:"supplier"`
	Unit        *string          `json:"unit"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Stock       *decimal.Decimal `json:"stock"`
	MinStock    *decimal.Decimal `json:"min_stock"`
	Active      *bool            `json:"active"`
	Metadata    map[string]any   `json:"metadata"`
}

// PurchasedItem is a purchase line applied to the catalog. Quantity is in the
// product's unit.
type PurchasedItem struct {
	ProductID int64
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Response struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Description    *string          `json:"description,omitempty"`
	Category       *string          `json:"category,omitempty"`
	Supplier       *string          `json:"supplier,omitempty"`
	Unit           string           `json:"unit"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	AverageCost    *decimal.Decimal `json:"average_cost,omitempty"`
	Stock          decimal.Decimal  `json:"stock"`
	MinStock       decimal.Decimal  `json:"min_stock"`
	LowStock       bool             `json:"low_stock"`
	Active         bool             `json:"active"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type PriceChangeResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	PreviousUnit  string          `json:"previous_unit"`
	NewUnit       string          `json:"new_unit"`
	Source        PriceSource     `json:"source"`
	PurchaseID    *string         `json:"purchase_id,omitempty"`
	ChangedAt     time.Time       `json:"changed_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrInvalidStock        = errors.New("invalid_stock")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidID           = errors.New("invalid_id")
	ErrCodeTaken           = errors.New("code_taken")
	ErrProductInUse        = errors.New("product_in_use")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of purchase dates and report ranges.
const DateLayout = "2006-01-02"

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type ItemInput struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateRequest struct {
	SupplierName        string           `json:"supplier_name"`
	PurchaseDate        string           `json:"purchase_date"`
	InvoiceNumber       *string          `json:"invoice_number"`
	Discount            *decimal.Decimal `json:"discount"`
	Taxes               *decimal.Decimal `json:"taxes"`
	Notes               *string          `json:"notes"`
	UpdateProductPrices bool             `json:"update_product_prices"`
	Items               []ItemInput      `json:"items"`
}

// ListRequest bounds are inclusive dates in DateLayout; empty means open.
type ListRequest struct {
	From string
	To   string
}

type ItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Position  int             `json:"position"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	SupplierName   string          `json:"supplier_name"`
	PurchaseDate   string          `json:"purchase_date"`
	InvoiceNumber  *string         `json:"invoice_number,omitempty"`
	Discount       decimal.Decimal `json:"discount"`
	Taxes          decimal.Decimal `json:"taxes"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	Notes          *string         `json:"notes,omitempty"`
	PricesApplied  bool            `json:"prices_applied"`
	Items          []ItemResponse  `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidSupplier     = errors.New("invalid_supplier_name")
	ErrInvalidDate         = errors.New("invalid_purchase_date")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrNoItems             = errors.New("invalid_items")
	ErrInvalidProduct      = errors.New("invalid_product")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrInvalidDiscount     = errors.New("invalid_discount")
	ErrInvalidTaxes        = errors.New("invalid_taxes")
	ErrNotFound            = errors.New("not_found")
)

// ItemError ties a validation failure to an item index.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return e.Err.Error() }

func (e *ItemError) Unwrap() error { return e.Err }

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
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string) (*Response, error)

	// Preview costs an unsaved recipe with the same engine used for stored ones.
	Preview(ctx context.Context, req PreviewRequest) (*costing.Breakdown, error)

	RecalculateForProducts(ctx context.Context, tx *gorm.DB, orgID int64, productIDs []int64, kinds ...costing.ChangeKind) (int, error)
}

type IngredientInput struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	Note      *string         `json:"note"`
}

type CreateRequest struct {
	Name               string            `json:"name"`
	Description        *string           `json:"description"`
	Category           *string           `json:"category"`
	PrepTimeMinutes    *int              `json:"prep_time_minutes"`
	PortionCount       *int              `json:"portion_count"`
	DesiredMargin      *decimal.Decimal  `json:"desired_margin"`
	SuggestedSalePrice *decimal.Decimal  `json:"suggested_sale_price"`
	Active             *bool             `json:"active"`
	Ingredients        []IngredientInput `json:"ingredients"`
}

// UpdateRequest applies only the fields that are set. Ingredients, when set,
// replace the whole list.
type UpdateRequest struct {
	ID                 string             `json:"-"`
	Name               *string            `json:"name"`
	Description        *string            `json:"description"`
	Category           *string            `json:"category"`
	PrepTimeMinutes    *int               `json:"prep_time_minutes"`
	PortionCount       *int               `json:"portion_count"`
	DesiredMargin      *decimal.Decimal   `json:"desired_margin"`
	SuggestedSalePrice *decimal.Decimal   `json:"suggested_sale_price"`
	Active             *bool              `json:"active"`
	Ingredients        *[]IngredientInput `json:"ingredients"`
}

type PreviewRequest struct {
	PortionCount       *int              `json:"portion_count"`
	DesiredMargin      *decimal.Decimal  `json:"desired_margin"`
	SuggestedSalePrice *decimal.Decimal  `json:"suggested_sale_price"`
	Ingredients        []IngredientInput `json:"ingredients"`
}

type ListRequest struct {
	Name           string
	Category       string
	Active         *bool
	Classification costing.Label
	Sort           SortOrder
}

type IngredientResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Position  int             `json:"position"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	Note      *string         `json:"note,omitempty"`
}

// CostError explains why a stored recipe could not be costed right now.
type CostError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	LineIndex *int   `json:"line_index,omitempty"`
	ProductID string `json:"product_id,omitempty"`
}

type Response struct {
	ID                 string               `json:"id"`
	OrganizationID     string               `json:"organization_id"`
	Name               string               `json:"name"`
	Description        *string              `json:"description,omitempty"`
	Category           *string              `json:"category,omitempty"`
	PrepTimeMinutes    *int                 `json:"prep_time_minutes,omitempty"`
	PortionCount       int                  `json:"portion_count"`
	DesiredMargin      *decimal.Decimal     `json:"desired_margin,omitempty"`
	SuggestedSalePrice *decimal.Decimal     `json:"suggested_sale_price,omitempty"`
	Version            int                  `json:"version"`
	Active             bool                 `json:"active"`
	Ingredients        []IngredientResponse `json:"ingredients"`
	Breakdown          *costing.Breakdown   `json:"breakdown"`
	CostError          *CostError           `json:"cost_error,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

var (
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidPortionCount   = errors.New("invalid_portion_count")
	ErrInvalidMargin         = errors.New("invalid_desired_margin")
	ErrInvalidSalePrice      = errors.New("invalid_suggested_sale_price")
	ErrInvalidPrepTime       = errors.New("invalid_prep_time_minutes")
	ErrNoIngredients         = errors.New("invalid_ingredients")
	ErrInvalidClassification = errors.New("invalid_classification")
	ErrInvalidSort           = errors.New("invalid_sort")
	ErrNotFound              = errors.New("not_found")
)

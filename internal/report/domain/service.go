package domain

import (
	"context"
	"errors"
	"io"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/costing"
)

type Service interface {
	CMVReport(ctx context.Context) (*CMVReport, error)
	PurchaseSummary(ctx context.Context, req PurchaseSummaryRequest) (*PurchaseSummary, error)
	RecipeSheetPDF(ctx context.Context, recipeID string) (io.Reader, error)
}

// RecipeCMV is one costed recipe inside a CMV report.
type RecipeCMV struct {
	RecipeID       string           `json:"recipe_id"`
	Name           string           `json:"name"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	CMVPercentage  *decimal.Decimal `json:"cmv_percentage"`
	Classification costing.Label    `json:"classification"`
}

// RecipeFailure is a recipe that could not be costed. It is listed instead of
// being left out of the averages silently.
type RecipeFailure struct {
	RecipeID  string `json:"recipe_id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	LineIndex *int   `json:"line_index,omitempty"`
}

type CMVReport struct {
	RecipeCount int                   `json:"recipe_count"`
	CostedCount int                   `json:"costed_count"`
	AverageCMV  *decimal.Decimal      `json:"average_cmv"`
	TargetCMV   decimal.Decimal       `json:"target_cmv"`
	MeetsTarget *bool                 `json:"meets_target"`
	Best        *RecipeCMV            `json:"best"`
	Worst       *RecipeCMV            `json:"worst"`
	Classes     map[costing.Label]int `json:"classes"`
	Recipes     []RecipeCMV           `json:"recipes"`
	Failures    []RecipeFailure       `json:"failures"`
}

type PurchaseSummaryRequest struct {
	From string
	To   string
}

type MonthTotals struct {
	Month     string          `json:"month"`
	Purchases int             `json:"purchases"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Taxes     decimal.Decimal `json:"taxes"`
	Total     decimal.Decimal `json:"total"`
}

type PurchaseSummary struct {
	From   string          `json:"from,omitempty"`
	To     string          `json:"to,omitempty"`
	Months []MonthTotals   `json:"months"`
	Total  decimal.Decimal `json:"total"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
)

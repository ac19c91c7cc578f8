package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/costing"
)

// Recipe is a ficha técnica. The Total/CostPerPortion/CMV columns are a snapshot
// derived by the costing engine; CostError is set instead when costing failed.
type Recipe struct {
	ID                 int64               `gorm:"primaryKey"`
	OrgID              int64               `gorm:"column:org_id;not null;index"`
	Name               string              `gorm:"type:text;not null"`
	Description        *string             `gorm:"type:text"`
	Category           *string             `gorm:"type:text"`
	PrepTimeMinutes    *int                `gorm:"column:prep_time_minutes"`
	PortionCount       int                 `gorm:"not null"`
	DesiredMargin      decimal.NullDecimal `gorm:"type:numeric(7,4)"`
	SuggestedSalePrice decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	Version            int                 `gorm:"not null"`
	Active             bool                `gorm:"not null"`
	TotalCost          decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	CostPerPortion     decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	CMVPercentage      decimal.NullDecimal `gorm:"column:cmv_percentage;type:numeric(9,4)"`
	CostError          *string             `gorm:"type:text"`
	CostedAt           *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (Recipe) TableName() string { return "recipes" }

type Ingredient struct {
	ID        int64           `gorm:"primaryKey"`
	RecipeID  int64           `gorm:"column:recipe_id;not null;index:ix_recipe_ingredients_recipe,priority:1"`
	ProductID int64           `gorm:"column:product_id;not null;index"`
	Position  int             `gorm:"not null;index:ix_recipe_ingredients_recipe,priority:2"`
	Quantity  decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Unit      string          `gorm:"type:text;not null"`
	Note      *string         `gorm:"type:text"`
}

func (Ingredient) TableName() string { return "recipe_ingredients" }

// Snapshot is the persisted result of the last costing of a recipe.
type Snapshot struct {
	TotalCost      decimal.NullDecimal
	CostPerPortion decimal.NullDecimal
	CMVPercentage  decimal.NullDecimal
	CostError      *string
	CostedAt       time.Time
}

// NewSnapshot rounds a breakdown for persistence, or records the failure kind.
func NewSnapshot(b costing.Breakdown, err error, at time.Time) Snapshot {
	if err != nil {
		kind := costing.Kind(err)
		if kind == "" {
			kind = "costing_failed"
		}
		return Snapshot{CostError: &kind, CostedAt: at}
	}
	r := b.Rounded(costing.PersistenceRounding)
	s := Snapshot{
		TotalCost:      decimal.NewNullDecimal(r.TotalCost),
		CostPerPortion: decimal.NewNullDecimal(r.CostPerPortion),
		CostedAt:       at,
	}
	if r.CMVPercentage != nil {
		s.CMVPercentage = decimal.NewNullDecimal(*r.CMVPercentage)
	}
	return s
}

// ToCosting builds the engine's view of a recipe. Ingredients must be in position order.
func ToCosting(r *Recipe, ingredients []Ingredient) costing.Recipe {
	out := costing.Recipe{
		Name:         r.Name,
		PortionCount: r.PortionCount,
		Lines:        make([]costing.Line, 0, len(ingredients)),
	}
	if r.DesiredMargin.Valid {
		m := r.DesiredMargin.Decimal
		out.DesiredMargin = &m
	}
	if r.SuggestedSalePrice.Valid {
		p := r.SuggestedSalePrice.Decimal
		out.SuggestedSalePrice = &p
	}
	for _, ing := range ingredients {
		line := costing.Line{
			ProductID: strconv.FormatInt(ing.ProductID, 10),
			Quantity:  ing.Quantity,
			Unit:      ing.Unit,
		}
		if ing.Note != nil {
			line.Note = *ing.Note
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

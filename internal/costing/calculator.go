package costing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type InactivePolicy string

const (
	// InactiveWarn prices lines that reference inactive products and reports a
	// warning on the breakdown.
	InactiveWarn InactivePolicy = "warn"
	// InactiveReject fails the rollup with ErrInactiveProduct.
	InactiveReject InactivePolicy = "reject"
)

func (p InactivePolicy) Valid() bool {
	return p == InactiveWarn || p == InactiveReject
}

const WarningInactiveProduct = "inactive_product"

var hundred = decimal.NewFromInt(100)

// Calculator is the single costing implementation shared by recipe previews,
// persisted snapshots and reports.
type Calculator struct {
	units      *UnitTable
	thresholds Thresholds
	inactive   InactivePolicy
}

type Option func(*Calculator)

func WithUnits(t *UnitTable) Option {
	return func(c *Calculator) {
		if t != nil {
			c.units = t
		}
	}
}

func WithThresholds(t Thresholds) Option {
	return func(c *Calculator) { c.thresholds = t }
}

func WithInactivePolicy(p InactivePolicy) Option {
	return func(c *Calculator) {
		if p.Valid() {
			c.inactive = p
		}
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		units:      DefaultUnitTable(),
		thresholds: DefaultThresholds(),
		inactive:   InactiveWarn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Units() *UnitTable { return c.units }

func (c *Calculator) Thresholds() Thresholds { return c.thresholds }

func (c *Calculator) InactivePolicy() InactivePolicy { return c.inactive }

func (c *Calculator) Classify(cmv *decimal.Decimal) Label {
	return c.thresholds.Classify(cmv)
}

// LineCost prices one ingredient line against its product's current price.
func (c *Calculator) LineCost(line Line, product Product) (decimal.Decimal, error) {
	if !line.Quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidQuantity, line.Quantity)
	}
	if product.UnitPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidPrice, product.UnitPrice)
	}
	if !product.Active && c.inactive == InactiveReject {
		return decimal.Zero, ErrInactiveProduct
	}

	qty := line.Quantity
	if !sameUnit(line.Unit, product.Unit) {
		converted, err := c.units.Convert(line.Quantity, line.Unit, product.Unit)
		if err != nil {
			return decimal.Zero, err
		}
		qty = converted
	}
	return qty.Mul(product.UnitPrice), nil
}

// Rollup aggregates the recipe's line costs and derives per-portion cost, sale
// price, CMV and its classification. Any line failure fails the whole rollup.
func (c *Calculator) Rollup(recipe Recipe, lookup ProductLookup) (Breakdown, error) {
	out := Breakdown{
		TotalCost: decimal.Zero,
		Lines:     make([]LineCost, 0, len(recipe.Lines)),
	}

	for i, line := range recipe.Lines {
		var (
			product Product
			ok      bool
		)
		if lookup != nil {
			product, ok = lookup(line.ProductID)
		}
		if !ok {
			return Breakdown{}, &LineError{Index: i, ProductID: line.ProductID, Err: ErrProductNotFound}
		}

		cost, err := c.LineCost(line, product)
		if err != nil {
			return Breakdown{}, &LineError{Index: i, ProductID: line.ProductID, Err: err}
		}
		if !product.Active {
			out.Warnings = append(out.Warnings, Warning{
				Code:      WarningInactiveProduct,
				Index:     i,
				ProductID: product.ID,
				Message:   fmt.Sprintf("product %q is inactive; its last price was used", product.Name),
			})
		}

		out.TotalCost = out.TotalCost.Add(cost)
		out.Lines = append(out.Lines, LineCost{
			Index:       i,
			ProductID:   line.ProductID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Unit:        line.Unit,
			PricedUnit:  product.Unit,
			UnitPrice:   product.UnitPrice,
			Cost:        cost,
		})
	}

	portions := recipe.PortionCount
	if portions < 1 {
		portions = 1
	}
	out.CostPerPortion = out.TotalCost.Div(decimal.NewFromInt(int64(portions)))

	if price := effectiveSalePrice(recipe, out.TotalCost); price != nil && price.IsPositive() {
		cmv := out.TotalCost.Div(*price).Mul(hundred)
		margin := price.Sub(out.TotalCost)
		out.EffectiveSalePrice = price
		out.CMVPercentage = &cmv
		out.GrossMargin = &margin
	}
	out.Classification = c.thresholds.Classify(out.CMVPercentage)

	return out, nil
}

func effectiveSalePrice(recipe Recipe, totalCost decimal.Decimal) *decimal.Decimal {
	if p := recipe.SuggestedSalePrice; p != nil && p.IsPositive() {
		price := *p
		return &price
	}
	if m := recipe.DesiredMargin; m != nil && m.IsPositive() && m.LessThan(hundred) {
		price := totalCost.Div(decimal.NewFromInt(1).Sub(m.Div(hundred)))
		return &price
	}
	return nil
}

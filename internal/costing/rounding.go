package costing

import "github.com/shopspring/decimal"

// RoundingPolicy fixes the number of decimal places kept for money and
// percentages. Rounding is half-even and is applied to finished breakdowns only.
type RoundingPolicy struct {
	MoneyPlaces   int32
	PercentPlaces int32
}

var (
	PresentationRounding = RoundingPolicy{MoneyPlaces: 2, PercentPlaces: 2}
	PersistenceRounding  = RoundingPolicy{MoneyPlaces: 4, PercentPlaces: 4}
)

func (p RoundingPolicy) Money(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(p.MoneyPlaces)
}

func (p RoundingPolicy) Percent(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(p.PercentPlaces)
}

// Rounded returns a copy of b rounded with p. The classification label is kept
// from the unrounded CMV.
func (b Breakdown) Rounded(p RoundingPolicy) Breakdown {
	out := b
	out.TotalCost = p.Money(b.TotalCost)
	out.CostPerPortion = p.Money(b.CostPerPortion)
	out.EffectiveSalePrice = roundPtr(b.EffectiveSalePrice, p.Money)
	out.GrossMargin = roundPtr(b.GrossMargin, p.Money)
	out.CMVPercentage = roundPtr(b.CMVPercentage, p.Percent)

	if b.Lines != nil {
		out.Lines = make([]LineCost, len(b.Lines))
		for i, line := range b.Lines {
			line.Cost = p.Money(line.Cost)
			out.Lines[i] = line
		}
	}
	if b.Warnings != nil {
		out.Warnings = append([]Warning(nil), b.Warnings...)
	}
	return out
}

func roundPtr(v *decimal.Decimal, fn func(decimal.Decimal) decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	r := fn(*v)
	return &r
}

// QuantityPlaces is the scale ingredient and purchase quantities are stored with.
const QuantityPlaces int32 = 4

// FitsScale reports whether v is stored unchanged in a column with places decimals.
func FitsScale(v decimal.Decimal, places int32) bool {
	return v.Equal(v.Round(places))
}

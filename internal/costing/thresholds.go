package costing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Label string

const (
	LabelExcellent     Label = "excellent"
	LabelGood          Label = "good"
	LabelHigh          Label = "high"
	LabelNotApplicable Label = "not_applicable"
)

func (l Label) Valid() bool {
	switch l {
	case LabelExcellent, LabelGood, LabelHigh, LabelNotApplicable:
		return true
	default:
		return false
	}
}

// Thresholds maps CMV percentages to labels. Both bounds are inclusive.
type Thresholds struct {
	ExcellentMax decimal.Decimal `json:"excellent_max"`
	GoodMax      decimal.Decimal `json:"good_max"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ExcellentMax: decimal.NewFromInt(25),
		GoodMax:      decimal.NewFromInt(35),
	}
}

func (t Thresholds) Validate() error {
	if !t.ExcellentMax.IsPositive() || !t.GoodMax.IsPositive() {
		return fmt.Errorf("%w: bounds must be positive", ErrInvalidThresholds)
	}
	if t.ExcellentMax.GreaterThan(t.GoodMax) {
		return fmt.Errorf("%w: excellentMax %s exceeds goodMax %s", ErrInvalidThresholds, t.ExcellentMax, t.GoodMax)
	}
	return nil
}

func (t Thresholds) Classify(cmv *decimal.Decimal) Label {
	if cmv == nil {
		return LabelNotApplicable
	}
	switch {
	case cmv.LessThanOrEqual(t.ExcellentMax):
		return LabelExcellent
	case cmv.LessThanOrEqual(t.GoodMax):
		return LabelGood
	default:
		return LabelHigh
	}
}

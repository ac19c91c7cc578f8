package costing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		cmv  string
		want Label
	}{
		{"0", LabelExcellent},
		{"24.99", LabelExcellent},
		{"25.0", LabelExcellent},
		{"25.01", LabelGood},
		{"35.0", LabelGood},
		{"35.01", LabelHigh},
		{"70", LabelHigh},
		{"140", LabelHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, th.Classify(decPtr(tc.cmv)), "cmv %s", tc.cmv)
	}
	assert.Equal(t, LabelNotApplicable, th.Classify(nil))
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{ExcellentMax: dec("30"), GoodMax: dec("30")}.Validate())

	err := Thresholds{ExcellentMax: dec("40"), GoodMax: dec("30")}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidThresholds))

	err = Thresholds{ExcellentMax: dec("0"), GoodMax: dec("30")}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidThresholds))
}

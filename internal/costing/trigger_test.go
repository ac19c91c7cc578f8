package costing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresRollup(t *testing.T) {
	for _, k := range []ChangeKind{
		IngredientAdded, IngredientRemoved, IngredientChanged, PortionCountChanged,
		SalePricingChanged, ProductPriceChanged, ProductUnitChanged, ProductDeactivated,
		ProductReactivated,
	} {
		assert.True(t, RequiresRollup(k), string(k))
	}
	assert.False(t, RequiresRollup(RecipeDescriptorChanged))
	assert.False(t, RequiresRollup(ProductDescriptorChanged))
	assert.False(t, AnyRequiresRollup())
	assert.True(t, AnyRequiresRollup(RecipeDescriptorChanged, ProductPriceChanged))
}

func TestDiffLines(t *testing.T) {
	base := []Line{
		{ProductID: "a", Quantity: dec("1"), Unit: "kg"},
		{ProductID: "b", Quantity: dec("2"), Unit: "L"},
	}

	assert.Empty(t, DiffLines(base, base))
	assert.Equal(t, []ChangeKind{IngredientAdded}, DiffLines(base, append(append([]Line{}, base...), Line{ProductID: "c", Quantity: dec("1"), Unit: "un"})))
	assert.Equal(t, []ChangeKind{IngredientRemoved}, DiffLines(base, base[:1]))

	changed := []Line{base[0], {ProductID: "b", Quantity: dec("2.5"), Unit: "L"}}
	assert.Equal(t, []ChangeKind{IngredientChanged}, DiffLines(base, changed))

	sameQty := []Line{base[0], {ProductID: "b", Quantity: dec("2.0"), Unit: "l"}}
	assert.Empty(t, DiffLines(base, sameQty))

	noted := []Line{base[0], {ProductID: "b", Quantity: dec("2"), Unit: "L", Note: "gelado"}}
	assert.Equal(t, []ChangeKind{RecipeDescriptorChanged}, DiffLines(base, noted))
}

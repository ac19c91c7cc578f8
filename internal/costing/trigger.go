package costing

// ChangeKind names a write that may touch a recipe's derived cost.
type ChangeKind string

const (
	IngredientAdded          ChangeKind = "ingredient_added"
	IngredientRemoved        ChangeKind = "ingredient_removed"
	IngredientChanged        ChangeKind = "ingredient_changed"
	PortionCountChanged      ChangeKind = "portion_count_changed"
	SalePricingChanged       ChangeKind = "sale_pricing_changed"
	ProductPriceChanged      ChangeKind = "product_price_changed"
	ProductUnitChanged       ChangeKind = "product_unit_changed"
	ProductDeactivated       ChangeKind = "product_deactivated"
	ProductReactivated       ChangeKind = "product_reactivated"
	RecipeDescriptorChanged  ChangeKind = "recipe_descriptor_changed"
	ProductDescriptorChanged ChangeKind = "product_descriptor_changed"
)

// RequiresRollup reports whether a write of this kind invalidates derived costs.
// Writers that persist a cost snapshot must recompute it in the same
// transaction as the write whenever this returns true.
func RequiresRollup(kind ChangeKind) bool {
	switch kind {
	case IngredientAdded,
		IngredientRemoved,
		IngredientChanged,
		PortionCountChanged,
		SalePricingChanged,
		ProductPriceChanged,
		ProductUnitChanged,
		ProductDeactivated,
		ProductReactivated:
		return true
	default:
		return false
	}
}

// AnyRequiresRollup is RequiresRollup over a batch of changes.
func AnyRequiresRollup(kinds ...ChangeKind) bool {
	for _, k := range kinds {
		if RequiresRollup(k) {
			return true
		}
	}
	return false
}

// DiffLines classifies the difference between two ingredient lists.
func DiffLines(before, after []Line) []ChangeKind {
	var out []ChangeKind
	if len(after) > len(before) {
		out = append(out, IngredientAdded)
	}
	if len(after) < len(before) {
		out = append(out, IngredientRemoved)
	}
	n := len(before)
	if len(after) < n {
		n = len(after)
	}
	for i := 0; i < n; i++ {
		b, a := before[i], after[i]
		if b.ProductID != a.ProductID || !b.Quantity.Equal(a.Quantity) || !sameUnit(b.Unit, a.Unit) {
			out = append(out, IngredientChanged)
			break
		}
	}
	if len(out) == 0 {
		for i := range after {
			if before[i].Note != after[i].Note {
				out = append(out, RecipeDescriptorChanged)
				break
			}
		}
	}
	return out
}

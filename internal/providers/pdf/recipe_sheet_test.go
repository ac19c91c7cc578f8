package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRecipeSheet_ProducesPDF(t *testing.T) {
	p := New()

	r, err := p.GenerateRecipeSheet(context.Background(), RecipeSheetData{
		OrgName:      "Cantina",
		RecipeName:   "Bolo simples",
		Version:      "3",
		PortionCount: "2",
		Lines: []RecipeSheetLine{
			{Product: "Farinha", Quantity: "500 g", UnitPrice: "R$ 5,00/kg", Cost: "R$ 2,50"},
			{Product: "Ovos", Quantity: "3 un", UnitPrice: "R$ 0,80/un", Cost: "R$ 2,40", Note: "grandes"},
		},
		TotalCost:      "R$ 4,90",
		CostPerPortion: "R$ 2,45",
		CMV:            "24,50%",
		Classification: "excellent",
		Warnings:       []string{"Ovos está inativo"},
	})
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestGenerateRecipeSheet_RequiresName(t *testing.T) {
	_, err := New().GenerateRecipeSheet(context.Background(), RecipeSheetData{})
	assert.ErrorIs(t, err, ErrEmptySheet)
}

package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/costing"
	organizationdomain "github.com/smallbiznis/recipecost/internal/organization/domain"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/providers/pdf"
	purchasedomain "github.com/smallbiznis/recipecost/internal/purchase/domain"
	recipedomain "github.com/smallbiznis/recipecost/internal/recipe/domain"
	"github.com/smallbiznis/recipecost/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 99

type fakeRecipes struct {
	recipedomain.Service
	listCalls int
	items     []recipedomain.Response
}

func (f *fakeRecipes) List(context.Context, recipedomain.ListRequest) ([]recipedomain.Response, error) {
	f.listCalls++
	return f.items, nil
}

func (f *fakeRecipes) Get(_ context.Context, id string) (*recipedomain.Response, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, recipedomain.ErrNotFound
}

type fakeProducts struct {
	productdomain.Repository
	items []productdomain.Product
}

func (f *fakeProducts) FindByIDs(context.Context, *gorm.DB, int64, []int64) ([]productdomain.Product, error) {
	return f.items, nil
}

type fakePurchases struct {
	purchasedomain.Repository
	filters []purchasedomain.ListFilter
	items   []purchasedomain.Purchase
}

func (f *fakePurchases) List(_ context.Context, _ *gorm.DB, _ int64, filter purchasedomain.ListFilter) ([]purchasedomain.Purchase, error) {
	f.filters = append(f.filters, filter)
	return f.items, nil
}

type fakeOrgs struct {
	organizationdomain.Service
	profile organizationdomain.Profile
}

func (f *fakeOrgs) Profile(context.Context, int64) (organizationdomain.Profile, error) {
	return f.profile, nil
}

type capturePDF struct {
	sheet pdf.RecipeSheetData
}

func (c *capturePDF) GenerateRecipeSheet(_ context.Context, data pdf.RecipeSheetData) (io.Reader, error) {
	c.sheet = data
	return nil, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func costed(id, name, total string, cmv *decimal.Decimal, label costing.Label) recipedomain.Response {
	return recipedomain.Response{
		ID:   id,
		Name: name,
		Breakdown: &costing.Breakdown{
			TotalCost:      dec(total),
			CMVPercentage:  cmv,
			Classification: label,
		},
	}
}

func TestBuildCMVReport(t *testing.T) {
	lineIndex := 2
	recipes := []recipedomain.Response{
		costed("1", "Bolo", "4.90", decPtr("24.50"), costing.LabelExcellent),
		costed("2", "Torta", "12.00", decPtr("40.00"), costing.LabelHigh),
		costed("3", "Molho base", "3.00", nil, costing.LabelNotApplicable),
		{
			ID:   "4",
			Name: "Pudim",
			CostError: &recipedomain.CostError{
				Kind:      costing.ErrIncompatibleDimension.Error(),
				Message:   "ingredient line 2",
				LineIndex: &lineIndex,
			},
		},
	}

	report := BuildCMVReport(recipes, dec("30"))

	assert.Equal(t, 4, report.RecipeCount)
	assert.Equal(t, 3, report.CostedCount)
	require.NotNil(t, report.AverageCMV)
	assert.True(t, report.AverageCMV.Equal(dec("32.25")), "average = %s", report.AverageCMV)
	require.NotNil(t, report.MeetsTarget)
	assert.False(t, *report.MeetsTarget)
	require.NotNil(t, report.Best)
	assert.Equal(t, "Bolo", report.Best.Name)
	require.NotNil(t, report.Worst)
	assert.Equal(t, "Torta", report.Worst.Name)
	assert.Equal(t, map[costing.Label]int{
		costing.LabelExcellent:     1,
		costing.LabelHigh:          1,
		costing.LabelNotApplicable: 1,
	}, report.Classes)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Pudim", report.Failures[0].Name)
	assert.Equal(t, "incompatible_dimension", report.Failures[0].Kind)
	require.NotNil(t, report.Failures[0].LineIndex)
	assert.Equal(t, 2, *report.Failures[0].LineIndex)
}

func TestBuildCMVReport_NothingMeasurable(t *testing.T) {
	report := BuildCMVReport(nil, dec("30"))

	assert.Nil(t, report.AverageCMV)
	assert.Nil(t, report.MeetsTarget)
	assert.Nil(t, report.Best)
	assert.Empty(t, report.Failures)
}

func TestSummarizePurchases_GroupsByMonth(t *testing.T) {
	purchases := []purchasedomain.Purchase{
		{PurchaseDate: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), Subtotal: dec("100"), Discount: dec("10"), Taxes: dec("5"), Total: dec("95")},
		{PurchaseDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Subtotal: dec("40"), Discount: decimal.Zero, Taxes: decimal.Zero, Total: dec("40")},
		{PurchaseDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Subtotal: dec("20"), Discount: decimal.Zero, Taxes: dec("1"), Total: dec("21")},
	}

	summary := SummarizePurchases(purchases)

	require.Len(t, summary.Months, 2)
	assert.Equal(t, "2026-03", summary.Months[0].Month)
	assert.Equal(t, "2026-04", summary.Months[1].Month)
	assert.Equal(t, 2, summary.Months[1].Purchases)
	assert.True(t, summary.Months[1].Total.Equal(dec("116")))
	assert.True(t, summary.Months[1].Discount.Equal(dec("10")))
	assert.True(t, summary.Total.Equal(dec("156")))
}

type fixture struct {
	svc       domain.Service
	recipes   *fakeRecipes
	purchases *fakePurchases
	pdf       *capturePDF
	orgs      *fakeOrgs
	cache     cache.ReportCache
	ctx       context.Context
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	fc := clock.NewFakeClock(time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC))
	f := &fixture{
		recipes:   &fakeRecipes{},
		purchases: &fakePurchases{},
		pdf:       &capturePDF{},
		orgs: &fakeOrgs{profile: organizationdomain.Profile{
			RestaurantName: organizationdomain.DefaultRestaurantName,
			TargetCMV:      dec("30"),
		}},
		cache: cache.NewMemoryReportCache(time.Minute, fc),
		ctx:   orgcontext.WithOrgID(context.Background(), testOrgID),
	}
	f.svc = New(Params{
		Log:       zap.NewNop(),
		Clock:     fc,
		Recipes:   f.recipes,
		Products:  &fakeProducts{items: []productdomain.Product{{ID: 10, Name: "Farinha"}}},
		Purchases: f.purchases,
		Orgs:      f.orgs,
		Cache:     f.cache,
		PDF:       f.pdf,
	})
	return f
}

func TestCMVReport_CachedUntilInvalidated(t *testing.T) {
	f := setupService(t)
	f.recipes.items = []recipedomain.Response{
		costed("1", "Bolo", "4.90", decPtr("24.50"), costing.LabelExcellent),
	}

	first, err := f.svc.CMVReport(f.ctx)
	require.NoError(t, err)
	second, err := f.svc.CMVReport(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.recipes.listCalls)
	assert.True(t, first.AverageCMV.Equal(*second.AverageCMV))
	assert.True(t, *second.MeetsTarget)

	require.NoError(t, f.cache.InvalidateOrg(f.ctx, testOrgID))
	_, err = f.svc.CMVReport(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.recipes.listCalls)
}

func TestCMVReport_UsesOrganizationTarget(t *testing.T) {
	f := setupService(t)
	f.orgs.profile = organizationdomain.Profile{RestaurantName: "Cantina", TargetCMV: dec("22"), Customized: true}
	f.recipes.items = []recipedomain.Response{
		costed("1", "Bolo", "4.90", decPtr("24.50"), costing.LabelExcellent),
	}

	report, err := f.svc.CMVReport(f.ctx)
	require.NoError(t, err)

	assert.True(t, report.TargetCMV.Equal(dec("22")))
	require.NotNil(t, report.MeetsTarget)
	assert.False(t, *report.MeetsTarget)
}

func TestCMVReport_RequiresOrganization(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.CMVReport(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestPurchaseSummary_KeyedByRange(t *testing.T) {
	f := setupService(t)
	f.purchases.items = []purchasedomain.Purchase{
		{PurchaseDate: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), Subtotal: dec("10"), Discount: decimal.Zero, Taxes: decimal.Zero, Total: dec("10")},
	}

	_, err := f.svc.PurchaseSummary(f.ctx, domain.PurchaseSummaryRequest{From: "2026-04-01", To: "2026-04-30"})
	require.NoError(t, err)
	summary, err := f.svc.PurchaseSummary(f.ctx, domain.PurchaseSummaryRequest{From: "2026-04-01", To: "2026-04-30"})
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", summary.From)
	require.Len(t, summary.Months, 1)
	require.Len(t, f.purchases.filters, 1)

	_, err = f.svc.PurchaseSummary(f.ctx, domain.PurchaseSummaryRequest{From: "2026-01-01"})
	require.NoError(t, err)
	assert.Len(t, f.purchases.filters, 2)

	_, err = f.svc.PurchaseSummary(f.ctx, domain.PurchaseSummaryRequest{From: "yesterday"})
	assert.ErrorIs(t, err, purchasedomain.ErrInvalidDateRange)
}

func TestRecipeSheetPDF_FormatsSheet(t *testing.T) {
	f := setupService(t)
	prep := 45
	recipe := costed("1", "Bolo", "4.90", decPtr("24.50"), costing.LabelExcellent)
	recipe.Version = 3
	recipe.PortionCount = 2
	recipe.PrepTimeMinutes = &prep
	recipe.Breakdown.CostPerPortion = dec("2.45")
	recipe.Breakdown.EffectiveSalePrice = decPtr("20.00")
	recipe.Breakdown.Lines = []costing.LineCost{
		{Index: 0, ProductID: "10", UnitPrice: dec("5.00"), PricedUnit: "kg", Cost: dec("2.50")},
	}
	recipe.Ingredients = []recipedomain.IngredientResponse{
		{ProductID: "10", Quantity: dec("500"), Unit: "g"},
	}
	f.recipes.items = []recipedomain.Response{recipe}

	_, err := f.svc.RecipeSheetPDF(f.ctx, "1")
	require.NoError(t, err)

	sheet := f.pdf.sheet
	assert.Equal(t, organizationdomain.DefaultRestaurantName, sheet.OrgName)
	assert.Equal(t, "30,00%", sheet.TargetCMV)
	assert.Equal(t, "Bolo", sheet.RecipeName)
	assert.Equal(t, "45 min", sheet.PrepTime)
	assert.Equal(t, "R$ 4,90", sheet.TotalCost)
	assert.Equal(t, "R$ 20,00", sheet.SalePrice)
	assert.Equal(t, "24,50%", sheet.CMV)
	require.Len(t, sheet.Lines, 1)
	assert.Equal(t, "Farinha", sheet.Lines[0].Product)
	assert.Equal(t, "500 g", sheet.Lines[0].Quantity)
	assert.Equal(t, "R$ 5,00/kg", sheet.Lines[0].UnitPrice)
	assert.Equal(t, "R$ 2,50", sheet.Lines[0].Cost)
}

func TestRecipeSheetPDF_PrintsRestaurantName(t *testing.T) {
	f := setupService(t)
	f.orgs.profile = organizationdomain.Profile{RestaurantName: "Cantina da Nonna", TargetCMV: dec("27.5"), Customized: true}
	f.recipes.items = []recipedomain.Response{
		costed("1", "Bolo", "4.90", decPtr("24.50"), costing.LabelExcellent),
	}

	_, err := f.svc.RecipeSheetPDF(f.ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, "Cantina da Nonna", f.pdf.sheet.OrgName)
	assert.Equal(t, "27,50%", f.pdf.sheet.TargetCMV)
}

func TestRecipeSheetPDF_NotFound(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.RecipeSheetPDF(f.ctx, "404")
	assert.ErrorIs(t, err, recipedomain.ErrNotFound)
}

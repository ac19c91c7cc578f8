package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/costing"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	"github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/product/repository"
	recipedomain "github.com/smallbiznis/recipecost/internal/recipe/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 4242

type recalcCall struct {
	productIDs []int64
	kinds      []costing.ChangeKind
}

type fakeRecalculator struct {
	calls []recalcCall
}

func (f *fakeRecalculator) RecalculateForProducts(_ context.Context, _ *gorm.DB, _ int64, productIDs []int64, kinds ...costing.ChangeKind) (int, error) {
	f.calls = append(f.calls, recalcCall{productIDs: productIDs, kinds: kinds})
	return len(productIDs), nil
}

type fixture struct {
	db     *gorm.DB
	svc    domain.Service
	recalc *fakeRecalculator
	clock  *clock.FakeClock
	ctx    context.Context
}

func setupService(t *testing.T) fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.Product{},
		&domain.PriceChange{},
		&recipedomain.Recipe{},
		&recipedomain.Ingredient{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	recalc := &fakeRecalculator{}
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fc,
		Repo:         repository.Provide(),
		Costing:      config.NewStaticCostingHolder(config.DefaultCosting()),
		Reports:      cache.NoopReportCache(),
		Recalculator: recalc,
	})

	return fixture{
		db:     db,
		svc:    svc,
		recalc: recalc,
		clock:  fc,
		ctx:    orgcontext.WithOrgID(context.Background(), testOrgID),
	}
}

func createFlour(t *testing.T, f fixture) *domain.Response {
	t.Helper()
	resp, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name:      "Farinha de trigo",
		Unit:      "kg",
		UnitPrice: decimal.RequireFromString("5.40"),
	})
	require.NoError(t, err)
	return resp
}

func TestCreate_DerivesCodeAndDefaults(t *testing.T) {
	f := setupService(t)

	resp := createFlour(t, f)

	assert.Equal(t, "farinha-de-trigo", resp.Code)
	assert.Equal(t, "kg", resp.Unit)
	assert.True(t, resp.Active)
	assert.True(t, resp.Stock.IsZero())
	assert.Equal(t, domain.IDString(testOrgID), resp.OrganizationID)
}

func TestCreate_Validation(t *testing.T) {
	f := setupService(t)
	negative := decimal.NewFromInt(-1)

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"blank name", domain.CreateRequest{Name: "  ", Unit: "kg"}, domain.ErrInvalidName},
		{"unknown unit", domain.CreateRequest{Name: "Sal", Unit: "pinch"}, domain.ErrInvalidUnit},
		{"negative price", domain.CreateRequest{Name: "Sal", Unit: "kg", UnitPrice: negative}, domain.ErrInvalidUnitPrice},
		{"negative stock", domain.CreateRequest{Name: "Sal", Unit: "kg", Stock: &negative}, domain.ErrInvalidStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_RequiresOrganization(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{Name: "Sal", Unit: "kg"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreate_DuplicateCode(t *testing.T) {
	f := setupService(t)
	createFlour(t, f)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{Code: "farinha-de-trigo", Name: "Outra", Unit: "kg"})
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestUpdate_PriceChangeTriggersRecalculationAndHistory(t *testing.T) {
	f := setupService(t)
	created := createFlour(t, f)

	f.clock.Advance(time.Hour)
	price := decimal.RequireFromString("6.10")
	updated, err := f.svc.Update(f.ctx, domain.UpdateRequest{ID: created.ID, UnitPrice: &price})
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(price))

	require.Len(t, f.recalc.calls, 1)
	assert.Equal(t, []costing.ChangeKind{costing.ProductPriceChanged}, f.recalc.calls[0].kinds)

	history, err := f.svc.PriceHistory(f.ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].PreviousPrice.Equal(decimal.RequireFromString("5.40")))
	assert.True(t, history[0].NewPrice.Equal(price))
	assert.Equal(t, domain.PriceSourceManual, history[0].Source)
	assert.Nil(t, history[0].PurchaseID)
}

func TestUpdate_DescriptorOnlySkipsRecalculation(t *testing.T) {
	f := setupService(t)
	created := createFlour(t, f)

	name := "Farinha especial"
	_, err := f.svc.Update(f.ctx, domain.UpdateRequest{ID: created.ID, Name: &name})
	require.NoError(t, err)

	assert.Empty(t, f.recalc.calls)
	history, err := f.svc.PriceHistory(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestArchive_Deactivates(t *testing.T) {
	f := setupService(t)
	created := createFlour(t, f)

	resp, err := f.svc.Archive(f.ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)
	require.Len(t, f.recalc.calls, 1)
	assert.Equal(t, []costing.ChangeKind{costing.ProductDeactivated}, f.recalc.calls[0].kinds)

	inactive := false
	items, err := f.svc.List(f.ctx, domain.ListRequest{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestDelete_BlockedWhileReferenced(t *testing.T) {
	f := setupService(t)
	created := createFlour(t, f)
	productID, err := domain.ParseID(created.ID)
	require.NoError(t, err)

	now := f.clock.Now()
	require.NoError(t, f.db.Create(&recipedomain.Recipe{
		ID: 1, OrgID: testOrgID, Name: "Pão", PortionCount: 1, Version: 1, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, f.db.Create(&recipedomain.Ingredient{
		ID: 2, RecipeID: 1, ProductID: productID, Quantity: decimal.NewFromInt(1), Unit: "kg",
	}).Error)

	err = f.svc.Delete(f.ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrProductInUse)

	require.NoError(t, f.db.Exec("DELETE FROM recipe_ingredients").Error)
	require.NoError(t, f.svc.Delete(f.ctx, created.ID))

	_, err = f.svc.Get(f.ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyPurchase_WeightedAverageAndStock(t *testing.T) {
	f := setupService(t)
	stock := decimal.NewFromInt(10)
	created, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name:      "Açúcar",
		Unit:      "kg",
		UnitPrice: decimal.NewFromInt(4),
		Stock:     &stock,
	})
	require.NoError(t, err)
	productID, err := domain.ParseID(created.ID)
	require.NoError(t, err)

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.ApplyPurchase(f.ctx, tx, testOrgID, 99, []domain.PurchasedItem{{
			ProductID: productID,
			Quantity:  decimal.NewFromInt(10),
			UnitPrice: decimal.NewFromInt(6),
		}})
	})
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Stock.Equal(decimal.NewFromInt(20)), "stock = %s", got.Stock)
	assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(6)))
	require.NotNil(t, got.AverageCost)
	assert.True(t, got.AverageCost.Equal(decimal.NewFromInt(5)), "average = %s", got.AverageCost)

	history, err := f.svc.PriceHistory(f.ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.PriceSourcePurchase, history[0].Source)
	require.NotNil(t, history[0].PurchaseID)
	assert.Equal(t, "99", *history[0].PurchaseID)

	require.Len(t, f.recalc.calls, 1)
	assert.Equal(t, []int64{productID}, f.recalc.calls[0].productIDs)
}

func TestApplyPurchase_UnknownProduct(t *testing.T) {
	f := setupService(t)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.ApplyPurchase(f.ctx, tx, testOrgID, 1, []domain.PurchasedItem{{
			ProductID: 123,
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(1),
		}})
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_LowStock(t *testing.T) {
	f := setupService(t)
	stock := decimal.NewFromInt(1)
	minStock := decimal.NewFromInt(5)
	_, err := f.svc.Create(f.ctx, domain.CreateRequest{Name: "Leite", Unit: "l", Stock: &stock, MinStock: &minStock})
	require.NoError(t, err)
	createFlour(t, f)

	items, err := f.svc.List(f.ctx, domain.ListRequest{LowStock: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Leite", items[0].Name)
	assert.True(t, items[0].LowStock)
}

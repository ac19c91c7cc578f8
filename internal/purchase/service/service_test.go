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
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	productrepo "github.com/smallbiznis/recipecost/internal/product/repository"
	productservice "github.com/smallbiznis/recipecost/internal/product/service"
	"github.com/smallbiznis/recipecost/internal/purchase/domain"
	"github.com/smallbiznis/recipecost/internal/purchase/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 31337

type fixture struct {
	svc      domain.Service
	products productdomain.Service
	ctx      context.Context
	oil      string
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&productdomain.Product{},
		&productdomain.PriceChange{},
		&domain.Purchase{},
		&domain.Item{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	prodRepo := productrepo.Provide()
	reports := cache.NoopReportCache()

	products := productservice.New(productservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fc,
		Repo:    prodRepo,
		Costing: config.NewStaticCostingHolder(config.DefaultCosting()),
		Reports: reports,
	})
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fc,
		Repo:     repository.Provide(),
		Products: prodRepo,
		Catalog:  products,
		Reports:  reports,
	})

	ctx := orgcontext.WithOrgID(context.Background(), testOrgID)
	stock := decimal.NewFromInt(5)
	oil, err := products.Create(ctx, productdomain.CreateRequest{
		Name:      "Óleo de soja",
		Unit:      "L",
		UnitPrice: decimal.RequireFromString("8.00"),
		Stock:     &stock,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, products: products, ctx: ctx, oil: oil.ID}
}

func (f *fixture) request(date string, qty, price string) domain.CreateRequest {
	return domain.CreateRequest{
		SupplierName: "Atacadão",
		PurchaseDate: date,
		Items: []domain.ItemInput{{
			ProductID: f.oil,
			Quantity:  decimal.RequireFromString(qty),
			UnitPrice: decimal.RequireFromString(price),
		}},
	}
}

func TestCreate_ComputesTotals(t *testing.T) {
	f := setupService(t)
	req := f.request("2026-04-01", "5", "10.00")
	discount := decimal.RequireFromString("4.50")
	taxes := decimal.RequireFromString("1.25")
	req.Discount = &discount
	req.Taxes = &taxes

	resp, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(50)))
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("46.75")), "total = %s", resp.Total)
	assert.Equal(t, "2026-04-01", resp.PurchaseDate)
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].Subtotal.Equal(decimal.NewFromInt(50)))
	assert.False(t, resp.PricesApplied)

	product, err := f.products.Get(f.ctx, f.oil)
	require.NoError(t, err)
	assert.True(t, product.UnitPrice.Equal(decimal.RequireFromString("8.00")))
}

func TestCreate_Validation(t *testing.T) {
	f := setupService(t)
	tooMuch := decimal.NewFromInt(100)
	negative := decimal.NewFromInt(-1)

	tests := []struct {
		name   string
		mutate func(*domain.CreateRequest)
		want   error
	}{
		{"blank supplier", func(r *domain.CreateRequest) { r.SupplierName = "" }, domain.ErrInvalidSupplier},
		{"bad date", func(r *domain.CreateRequest) { r.PurchaseDate = "01/04/2026" }, domain.ErrInvalidDate},
		{"no items", func(r *domain.CreateRequest) { r.Items = nil }, domain.ErrNoItems},
		{"discount above subtotal", func(r *domain.CreateRequest) { r.Discount = &tooMuch }, domain.ErrInvalidDiscount},
		{"negative taxes", func(r *domain.CreateRequest) { r.Taxes = &negative }, domain.ErrInvalidTaxes},
		{"zero quantity", func(r *domain.CreateRequest) { r.Items[0].Quantity = decimal.Zero }, domain.ErrInvalidQuantity},
		{"quantity finer than storage scale", func(r *domain.CreateRequest) { r.Items[0].Quantity = decimal.RequireFromString("1.23456") }, domain.ErrInvalidQuantity},
		{"negative price", func(r *domain.CreateRequest) { r.Items[0].UnitPrice = negative }, domain.ErrInvalidUnitPrice},
		{"price finer than storage scale", func(r *domain.CreateRequest) { r.Items[0].UnitPrice = decimal.RequireFromString("0.00001") }, domain.ErrInvalidUnitPrice},
		{"unknown product", func(r *domain.CreateRequest) { r.Items[0].ProductID = "98765" }, domain.ErrInvalidProduct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("2026-04-01", "2", "10")
			tt.mutate(&req)
			_, err := f.svc.Create(f.ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	list, err := f.svc.List(f.ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_UpdateProductPrices(t *testing.T) {
	f := setupService(t)
	req := f.request("2026-04-01", "5", "10.00")
	req.UpdateProductPrices = true

	resp, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.PricesApplied)

	product, err := f.products.Get(f.ctx, f.oil)
	require.NoError(t, err)
	assert.True(t, product.UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, product.Stock.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, product.AverageCost)
	assert.True(t, product.AverageCost.Equal(decimal.NewFromInt(9)), "average = %s", product.AverageCost)

	history, err := f.products.PriceHistory(f.ctx, f.oil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].PurchaseID)
	assert.Equal(t, resp.ID, *history[0].PurchaseID)
}

func TestList_FiltersByInclusiveRange(t *testing.T) {
	f := setupService(t)
	for _, date := range []string{"2026-03-31", "2026-04-01", "2026-04-30", "2026-05-01"} {
		_, err := f.svc.Create(f.ctx, f.request(date, "1", "8"))
		require.NoError(t, err)
	}

	april, err := f.svc.List(f.ctx, domain.ListRequest{From: "2026-04-01", To: "2026-04-30"})
	require.NoError(t, err)
	require.Len(t, april, 2)
	assert.Equal(t, "2026-04-30", april[0].PurchaseDate)
	assert.Equal(t, "2026-04-01", april[1].PurchaseDate)
	assert.Len(t, april[0].Items, 1)

	_, err = f.svc.List(f.ctx, domain.ListRequest{From: "2026-05-01", To: "2026-04-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestGet_NotFound(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Get(f.ctx, "123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(f.ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

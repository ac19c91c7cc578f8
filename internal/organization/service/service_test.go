package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/organization/domain"
	"github.com/smallbiznis/recipecost/internal/organization/repository"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 7001

type fixture struct {
	svc   domain.Service
	cache cache.ReportCache
	clock *clock.FakeClock
	ctx   context.Context
}

func setupService(t *testing.T) fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Organization{}))

	fc := clock.NewFakeClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	reports := cache.NewMemoryReportCache(time.Minute, fc)
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   fc,
		Repo:    repository.Provide(),
		Costing: config.NewStaticCostingHolder(config.DefaultCosting()),
		Reports: reports,
	})

	return fixture{
		svc:   svc,
		cache: reports,
		clock: fc,
		ctx:   orgcontext.WithOrgID(context.Background(), testOrgID),
	}
}

func strPtr(v string) *string { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestGet_WithoutProfileUsesDefaults(t *testing.T) {
	f := setupService(t)

	resp, err := f.svc.Get(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, "7001", resp.ID)
	assert.Empty(t, resp.RestaurantName)
	assert.Nil(t, resp.TargetCMV)
	assert.Equal(t, "30", resp.EffectiveTargetCMV.String())
	assert.Nil(t, resp.UpdatedAt)

	profile, err := f.svc.Profile(f.ctx, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRestaurantName, profile.RestaurantName)
	assert.Equal(t, "30", profile.TargetCMV.String())
	assert.False(t, profile.Customized)
}

func TestUpdate_CreatesThenPatchesProfile(t *testing.T) {
	f := setupService(t)

	resp, err := f.svc.Update(f.ctx, domain.UpdateRequest{
		RestaurantName: strPtr("  Cantina da Nonna "),
		TargetCMV:      decPtr("28.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cantina da Nonna", resp.RestaurantName)
	assert.Equal(t, "cantina-da-nonna", resp.Slug)
	require.NotNil(t, resp.TargetCMV)
	assert.True(t, resp.TargetCMV.Equal(decimal.RequireFromString("28.5")))
	assert.True(t, resp.EffectiveTargetCMV.Equal(decimal.RequireFromString("28.5")))

	f.clock.Advance(time.Hour)
	resp, err = f.svc.Update(f.ctx, domain.UpdateRequest{TargetCMV: decPtr("25")})
	require.NoError(t, err)
	assert.Equal(t, "Cantina da Nonna", resp.RestaurantName)
	assert.True(t, resp.TargetCMV.Equal(decimal.NewFromInt(25)))

	got, err := f.svc.Get(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Cantina da Nonna", got.RestaurantName)
	assert.True(t, got.EffectiveTargetCMV.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(f.clock.Now()))

	profile, err := f.svc.Profile(f.ctx, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, "Cantina da Nonna", profile.RestaurantName)
	assert.True(t, profile.TargetCMV.Equal(decimal.NewFromInt(25)))
	assert.True(t, profile.Customized)
}

func TestUpdate_ClearTargetFallsBackToConfig(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Update(f.ctx, domain.UpdateRequest{TargetCMV: decPtr("22")})
	require.NoError(t, err)

	resp, err := f.svc.Update(f.ctx, domain.UpdateRequest{ClearTargetCMV: true})
	require.NoError(t, err)
	assert.Nil(t, resp.TargetCMV)
	assert.Equal(t, "30", resp.EffectiveTargetCMV.String())
}

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  domain.UpdateRequest
		want error
	}{
		{"name too short", domain.UpdateRequest{RestaurantName: strPtr(" A ")}, domain.ErrInvalidName},
		{"target below minimum", domain.UpdateRequest{TargetCMV: decPtr("4.99")}, domain.ErrInvalidTargetCMV},
		{"target above maximum", domain.UpdateRequest{TargetCMV: decPtr("80.01")}, domain.ErrInvalidTargetCMV},
		{"set and clear together", domain.UpdateRequest{TargetCMV: decPtr("30"), ClearTargetCMV: true}, domain.ErrInvalidTargetCMV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupService(t)
			_, err := f.svc.Update(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdate_InvalidatesReportCache(t *testing.T) {
	f := setupService(t)
	key := cache.NewReportKey(testOrgID, cache.ReportCMV, time.Time{}, time.Time{})
	require.NoError(t, f.cache.Set(f.ctx, key, []byte(`{}`)))

	_, err := f.svc.Update(f.ctx, domain.UpdateRequest{TargetCMV: decPtr("27")})
	require.NoError(t, err)

	_, ok, err := f.cache.Get(f.ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfilesAreScopedPerOrganization(t *testing.T) {
	f := setupService(t)
	_, err := f.svc.Update(f.ctx, domain.UpdateRequest{RestaurantName: strPtr("Bistrô Azul")})
	require.NoError(t, err)

	other, err := f.svc.Profile(f.ctx, testOrgID+1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRestaurantName, other.RestaurantName)
}

func TestRequiresOrganization(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

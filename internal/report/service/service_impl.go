package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/costing"
	obslogger "github.com/smallbiznis/recipecost/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipecost/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/recipecost/internal/organization/domain"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/providers/pdf"
	purchasedomain "github.com/smallbiznis/recipecost/internal/purchase/domain"
	recipedomain "github.com/smallbiznis/recipecost/internal/recipe/domain"
	"github.com/smallbiznis/recipecost/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const monthLayout = "2006-01"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Recipes   recipedomain.Service
	Products  productdomain.Repository
	Purchases purchasedomain.Repository
	Orgs      organizationdomain.Service
	Cache     cache.ReportCache
	PDF       pdf.Provider
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	recipes   recipedomain.Service
	products  productdomain.Repository
	purchases purchasedomain.Repository
	orgs      organizationdomain.Service
	cache     cache.ReportCache
	pdf       pdf.Provider
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		clock:     p.Clock,
		recipes:   p.Recipes,
		products:  p.Products,
		purchases: p.Purchases,
		orgs:      p.Orgs,
		cache:     p.Cache,
		pdf:       p.PDF,
		metrics:   p.Metrics,
	}
}

func (s *Service) CMVReport(ctx context.Context) (*domain.CMVReport, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.NewReportKey(orgID, cache.ReportCMV, time.Time{}, time.Time{})
	var report domain.CMVReport
	if s.cached(ctx, key, &report) {
		return &report, nil
	}

	profile, err := s.orgs.Profile(ctx, orgID)
	if err != nil {
		return nil, err
	}
	active := true
	recipes, err := s.recipes.List(ctx, recipedomain.ListRequest{Active: &active})
	if err != nil {
		return nil, err
	}

	report = BuildCMVReport(recipes, profile.TargetCMV)
	s.store(ctx, key, report)
	return &report, nil
}

// BuildCMVReport aggregates freshly costed recipes. Recipes without a sale price
// count towards the not_applicable class but not towards the average.
func BuildCMVReport(recipes []recipedomain.Response, target decimal.Decimal) domain.CMVReport {
	report := domain.CMVReport{
		RecipeCount: len(recipes),
		TargetCMV:   target,
		Classes:     make(map[costing.Label]int),
		Recipes:     make([]domain.RecipeCMV, 0, len(recipes)),
		Failures:    make([]domain.RecipeFailure, 0),
	}

	sum := decimal.Zero
	measured := 0
	for _, r := range recipes {
		if r.Breakdown == nil {
			failure := domain.RecipeFailure{RecipeID: r.ID, Name: r.Name}
			if r.CostError != nil {
				failure.Kind = r.CostError.Kind
				failure.Message = r.CostError.Message
				failure.LineIndex = r.CostError.LineIndex
			}
			report.Failures = append(report.Failures, failure)
			continue
		}

		item := domain.RecipeCMV{
			RecipeID:       r.ID,
			Name:           r.Name,
			TotalCost:      r.Breakdown.TotalCost,
			CMVPercentage:  r.Breakdown.CMVPercentage,
			Classification: r.Breakdown.Classification,
		}
		report.CostedCount++
		report.Classes[item.Classification]++
		report.Recipes = append(report.Recipes, item)

		if item.CMVPercentage == nil {
			continue
		}
		sum = sum.Add(*item.CMVPercentage)
		measured++
		if report.Best == nil || item.CMVPercentage.LessThan(*report.Best.CMVPercentage) {
			best := item
			report.Best = &best
		}
		if report.Worst == nil || item.CMVPercentage.GreaterThan(*report.Worst.CMVPercentage) {
			worst := item
			report.Worst = &worst
		}
	}

	if measured > 0 {
		avg := costing.PresentationRounding.Percent(sum.Div(decimal.NewFromInt(int64(measured))))
		meets := avg.LessThanOrEqual(target)
		report.AverageCMV = &avg
		report.MeetsTarget = &meets
	}
	return report
}

func (s *Service) PurchaseSummary(ctx context.Context, req domain.PurchaseSummaryRequest) (*domain.PurchaseSummary, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := purchasedomain.ParseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	if filter.From != nil {
		from = *filter.From
	}
	if filter.To != nil {
		to = filter.To.AddDate(0, 0, -1)
	}
	key := cache.NewReportKey(orgID, cache.ReportPurchaseSummary, from, to)

	var summary domain.PurchaseSummary
	if s.cached(ctx, key, &summary) {
		return &summary, nil
	}

	purchases, err := s.purchases.List(ctx, s.db, orgID, filter)
	if err != nil {
		return nil, err
	}

	summary = SummarizePurchases(purchases)
	summary.From = strings.TrimSpace(req.From)
	summary.To = strings.TrimSpace(req.To)
	s.store(ctx, key, summary)
	return &summary, nil
}

// SummarizePurchases groups purchase totals by calendar month, oldest first.
func SummarizePurchases(purchases []purchasedomain.Purchase) domain.PurchaseSummary {
	byMonth := make(map[string]*domain.MonthTotals)
	summary := domain.PurchaseSummary{Months: make([]domain.MonthTotals, 0), Total: decimal.Zero}

	for _, p := range purchases {
		month := p.PurchaseDate.UTC().Format(monthLayout)
		totals, ok := byMonth[month]
		if !ok {
			totals = &domain.MonthTotals{
				Month:    month,
				Subtotal: decimal.Zero,
				Discount: decimal.Zero,
				Taxes:    decimal.Zero,
				Total:    decimal.Zero,
			}
			byMonth[month] = totals
		}
		totals.Purchases++
		totals.Subtotal = totals.Subtotal.Add(p.Subtotal)
		totals.Discount = totals.Discount.Add(p.Discount)
		totals.Taxes = totals.Taxes.Add(p.Taxes)
		totals.Total = totals.Total.Add(p.Total)
		summary.Total = summary.Total.Add(p.Total)
	}

	for _, totals := range byMonth {
		summary.Months = append(summary.Months, *totals)
	}
	sort.Slice(summary.Months, func(i, j int) bool {
		return summary.Months[i].Month < summary.Months[j].Month
	})
	return summary
}

func (s *Service) RecipeSheetPDF(ctx context.Context, recipeID string) (io.Reader, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	recipe, err := s.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	names, err := s.productNames(ctx, orgID, recipe.Ingredients)
	if err != nil {
		return nil, err
	}
	profile, err := s.orgs.Profile(ctx, orgID)
	if err != nil {
		return nil, err
	}

	sheet := pdf.RecipeSheetData{
		OrgName:      profile.RestaurantName,
		RecipeName:   recipe.Name,
		Version:      strconv.Itoa(recipe.Version),
		PortionCount: strconv.Itoa(recipe.PortionCount),
		GeneratedAt:  s.clock.Now().Format("02/01/2006 15:04"),
	}
	if recipe.Category != nil {
		sheet.Category = *recipe.Category
	}
	if recipe.PrepTimeMinutes != nil {
		sheet.PrepTime = fmt.Sprintf("%d min", *recipe.PrepTimeMinutes)
	}

	costs := make(map[int]costing.LineCost)
	if b := recipe.Breakdown; b != nil {
		for _, line := range b.Lines {
			costs[line.Index] = line
		}
		sheet.TotalCost = money(b.TotalCost)
		sheet.CostPerPortion = money(b.CostPerPortion)
		sheet.SalePrice = moneyPtr(b.EffectiveSalePrice)
		sheet.GrossMargin = moneyPtr(b.GrossMargin)
		if b.CMVPercentage != nil {
			sheet.CMV = percent(*b.CMVPercentage)
		}
		sheet.TargetCMV = percent(profile.TargetCMV)
		sheet.Classification = string(b.Classification)
		for _, w := range b.Warnings {
			sheet.Warnings = append(sheet.Warnings, w.Message)
		}
	} else if recipe.CostError != nil {
		sheet.CostError = recipe.CostError.Kind
	}

	for i, ing := range recipe.Ingredients {
		line := pdf.RecipeSheetLine{
			Product:  names[ing.ProductID],
			Quantity: ing.Quantity.String() + " " + ing.Unit,
		}
		if line.Product == "" {
			line.Product = ing.ProductID
		}
		if ing.Note != nil {
			line.Note = *ing.Note
		}
		if cost, ok := costs[i]; ok {
			line.UnitPrice = money(cost.UnitPrice) + "/" + cost.PricedUnit
			line.Cost = money(cost.Cost)
		}
		sheet.Lines = append(sheet.Lines, line)
	}

	return s.pdf.GenerateRecipeSheet(ctx, sheet)
}

func (s *Service) productNames(ctx context.Context, orgID int64, ingredients []recipedomain.IngredientResponse) (map[string]string, error) {
	ids := make([]int64, 0, len(ingredients))
	for _, ing := range ingredients {
		id, err := productdomain.ParseID(ing.ProductID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	products, err := s.products.FindByIDs(ctx, s.db, orgID, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[productdomain.IDString(p.ID)] = p.Name
	}
	return names, nil
}

func (s *Service) cached(ctx context.Context, key cache.ReportKey, out any) bool {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report cache read failed", zap.String("key", key.String()), zap.Error(err))
		return false
	}
	if ok {
		if err := json.Unmarshal(payload, out); err != nil {
			obslogger.WithContext(ctx, s.log).Warn("report cache entry unreadable", zap.String("key", key.String()), zap.Error(err))
			ok = false
		}
	}
	s.metrics.RecordReportCache(ctx, string(key.Kind), ok)
	return ok
}

func (s *Service) store(ctx context.Context, key cache.ReportKey, report any) {
	payload, err := json.Marshal(report)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report encode failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func money(v decimal.Decimal) string {
	return "R$ " + strings.Replace(v.StringFixed(2), ".", ",", 1)
}

func percent(v decimal.Decimal) string {
	return strings.Replace(v.StringFixed(2), ".", ",", 1) + "%"
}

func moneyPtr(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return money(*v)
}

func orgIDFromContext(ctx context.Context) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return int64(orgID), nil
}

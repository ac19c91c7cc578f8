package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/costing"
	obslogger "github.com/smallbiznis/recipecost/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipecost/internal/observability/metrics"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	"github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Costing      *config.CostingConfigHolder
	Reports      cache.ReportCache
	Recalculator domain.SnapshotRecalculator `optional:"true"`
	Metrics      *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	genID        *snowflake.Node
	clock        clock.Clock
	costing      *config.CostingConfigHolder
	reports      cache.ReportCache
	recalculator domain.SnapshotRecalculator
	metrics      *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("product.service"),
		repo:         p.Repo,
		genID:        p.GenID,
		clock:        p.Clock,
		costing:      p.Costing,
		reports:      p.Reports,
		recalculator: p.Recalculator,
		metrics:      p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListFilter{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Active:   req.Active,
		LowStock: req.LowStock,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Make(name)
	}
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	unit, err := s.resolveUnit(req.Unit)
	if err != nil {
		return nil, err
	}
	if req.UnitPrice.IsNegative() {
		return nil, domain.ErrInvalidUnitPrice
	}

	stock, err := nonNegative(req.Stock)
	if err != nil {
		return nil, err
	}
	minStock, err := nonNegative(req.MinStock)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:          s.genID.Generate().Int64(),
		OrgID:       orgID,
		Code:        code,
		Name:        name,
		Description: trimmedPtr(req.Description),
		Category:    trimmedPtr(req.Category),
		Supplier:    trimmedPtr(req.Supplier),
		Unit:        unit,
		UnitPrice:   req.UnitPrice,
		Stock:       stock,
		MinStock:    minStock,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Metadata != nil {
		p.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCodeTaken
		}
		return nil, err
	}

	s.invalidateReports(ctx, orgID)
	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	productID, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	productID, err := domain.ParseID(req.ID)
	if err != nil {
		return nil, err
	}

	var (
		updated       *domain.Product
		recalculated  int
		changeSummary []costing.ChangeKind
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, orgID, productID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		before := *item

		kinds, err := s.applyUpdate(item, req)
		if err != nil {
			return err
		}
		item.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		if err := s.recordPriceChange(ctx, tx, &before, item, domain.PriceSourceManual, nil); err != nil {
			return err
		}

		if costing.AnyRequiresRollup(kinds...) {
			n, err := s.recalculate(ctx, tx, orgID, []int64{item.ID}, kinds...)
			if err != nil {
				return err
			}
			recalculated = n
		}

		updated = item
		changeSummary = kinds
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRecalculations(ctx, "product", recalculated)
	s.invalidateReports(ctx, orgID)
	obslogger.WithContext(ctx, s.log).Debug("product updated",
		zap.Int64("product_id", productID),
		zap.Any("changes", changeSummary),
		zap.Int("recipes_recalculated", recalculated),
	)

	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) Archive(ctx context.Context, id string) (*domain.Response, error) {
	inactive := false
	return s.Update(ctx, domain.UpdateRequest{ID: id, Active: &inactive})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return err
	}
	productID, err := domain.ParseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, orgID, productID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		refs, err := s.repo.CountRecipeReferences(ctx, tx, orgID, productID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return domain.ErrProductInUse
		}
		return s.repo.Delete(ctx, tx, orgID, productID)
	})
	if err != nil {
		return err
	}

	s.invalidateReports(ctx, orgID)
	return nil
}

func (s *Service) PriceHistory(ctx context.Context, id string) ([]domain.PriceChangeResponse, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	productID, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	changes, err := s.repo.ListPriceChanges(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.PriceChangeResponse, 0, len(changes))
	for _, change := range changes {
		item := domain.PriceChangeResponse{
			ID:            domain.IDString(change.ID),
			ProductID:     domain.IDString(change.ProductID),
			PreviousPrice: change.PreviousPrice,
			NewPrice:      change.NewPrice,
			PreviousUnit:  change.PreviousUnit,
			NewUnit:       change.NewUnit,
			Source:        change.Source,
			ChangedAt:     change.ChangedAt,
		}
		if change.PurchaseID != nil {
			purchaseID := domain.IDString(*change.PurchaseID)
			item.PurchaseID = &purchaseID
		}
		resp = append(resp, item)
	}
	return resp, nil
}

func (s *Service) ApplyPurchase(ctx context.Context, tx *gorm.DB, orgID, purchaseID int64, items []domain.PurchasedItem) error {
	if len(items) == 0 {
		return nil
	}

	var repriced []int64
	seen := make(map[int64]struct{})
	for _, purchased := range items {
		if !purchased.Quantity.IsPositive() {
			return domain.ErrInvalidQuantity
		}
		if purchased.UnitPrice.IsNegative() {
			return domain.ErrInvalidUnitPrice
		}

		item, err := s.repo.FindByID(ctx, tx, orgID, purchased.ProductID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("product %s: %w", domain.IDString(purchased.ProductID), domain.ErrNotFound)
		}
		before := *item

		item.AverageCost = decimal.NewNullDecimal(weightedAverage(item, purchased))
		item.Stock = item.Stock.Add(purchased.Quantity)
		item.UnitPrice = purchased.UnitPrice
		item.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		pid := purchaseID
		if err := s.recordPriceChange(ctx, tx, &before, item, domain.PriceSourcePurchase, &pid); err != nil {
			return err
		}
		if !before.UnitPrice.Equal(item.UnitPrice) {
			if _, ok := seen[item.ID]; !ok {
				seen[item.ID] = struct{}{}
				repriced = append(repriced, item.ID)
			}
		}
	}

	if len(repriced) == 0 {
		return nil
	}
	n, err := s.recalculate(ctx, tx, orgID, repriced, costing.ProductPriceChanged)
	if err != nil {
		return err
	}
	s.metrics.RecordRecalculations(ctx, "purchase", n)
	return nil
}

func (s *Service) applyUpdate(item *domain.Product, req domain.UpdateRequest) ([]costing.ChangeKind, error) {
	var kinds []costing.ChangeKind

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		if name != item.Name {
			item.Name = name
			kinds = append(kinds, costing.ProductDescriptorChanged)
		}
	}
	if req.Description != nil {
		item.Description = trimmedPtr(req.Description)
	}
	if req.Category != nil {
		item.Category = trimmedPtr(req.Category)
	}
	if req.Supplier != nil {
		item.Supplier = trimmedPtr(req.Supplier)
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if req.Unit != nil {
		unit, err := s.resolveUnit(*req.Unit)
		if err != nil {
			return nil, err
		}
		if unit != item.Unit {
			item.Unit = unit
			kinds = append(kinds, costing.ProductUnitChanged)
		}
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}
		if !req.UnitPrice.Equal(item.UnitPrice) {
			item.UnitPrice = *req.UnitPrice
			kinds = append(kinds, costing.ProductPriceChanged)
		}
	}
	if req.Stock != nil {
		if req.Stock.IsNegative() {
			return nil, domain.ErrInvalidStock
		}
		item.Stock = *req.Stock
	}
	if req.MinStock != nil {
		if req.MinStock.IsNegative() {
			return nil, domain.ErrInvalidStock
		}
		item.MinStock = *req.MinStock
	}
	if req.Active != nil && *req.Active != item.Active {
		item.Active = *req.Active
		if item.Active {
			kinds = append(kinds, costing.ProductReactivated)
		} else {
			kinds = append(kinds, costing.ProductDeactivated)
		}
	}
	return kinds, nil
}

func (s *Service) recordPriceChange(ctx context.Context, tx *gorm.DB, before, after *domain.Product, source domain.PriceSource, purchaseID *int64) error {
	if before.UnitPrice.Equal(after.UnitPrice) && before.Unit == after.Unit {
		return nil
	}
	return s.repo.InsertPriceChange(ctx, tx, &domain.PriceChange{
		ID:            s.genID.Generate().Int64(),
		OrgID:         after.OrgID,
		ProductID:     after.ID,
		PreviousPrice: before.UnitPrice,
		NewPrice:      after.UnitPrice,
		PreviousUnit:  before.Unit,
		NewUnit:       after.Unit,
		Source:        source,
		PurchaseID:    purchaseID,
		ChangedAt:     after.UpdatedAt,
	})
}

func (s *Service) recalculate(ctx context.Context, tx *gorm.DB, orgID int64, productIDs []int64, kinds ...costing.ChangeKind) (int, error) {
	if s.recalculator == nil {
		return 0, nil
	}
	return s.recalculator.RecalculateForProducts(ctx, tx, orgID, productIDs, kinds...)
}

func (s *Service) resolveUnit(raw string) (string, error) {
	unit, err := s.costing.Get().Units.Lookup(raw)
	if err != nil {
		return "", domain.ErrInvalidUnit
	}
	return unit.Symbol, nil
}

func (s *Service) invalidateReports(ctx context.Context, orgID int64) {
	if err := s.reports.InvalidateOrg(ctx, orgID); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report cache invalidation failed", zap.Int64("org_id", orgID), zap.Error(err))
	}
}

// weightedAverage blends the current average cost with a purchase, weighted by quantity.
func weightedAverage(item *domain.Product, purchased domain.PurchasedItem) decimal.Decimal {
	if !item.Stock.IsPositive() {
		return costing.PersistenceRounding.Money(purchased.UnitPrice)
	}
	base := item.UnitPrice
	if item.AverageCost.Valid {
		base = item.AverageCost.Decimal
	}
	total := item.Stock.Mul(base).Add(purchased.Quantity.Mul(purchased.UnitPrice))
	return costing.PersistenceRounding.Money(total.Div(item.Stock.Add(purchased.Quantity)))
}

func orgIDFromContext(ctx context.Context) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return int64(orgID), nil
}

func nonNegative(value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if value.IsNegative() {
		return decimal.Zero, domain.ErrInvalidStock
	}
	return *value, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(p *domain.Product) domain.Response {
	resp := domain.Response{
		ID:             domain.IDString(p.ID),
		OrganizationID: domain.IDString(p.OrgID),
		Code:           p.Code,
		Name:           p.Name,
		Description:    p.Description,
		Category:       p.Category,
		Supplier:       p.Supplier,
		Unit:           p.Unit,
		UnitPrice:      p.UnitPrice,
		Stock:          p.Stock,
		MinStock:       p.MinStock,
		LowStock:       p.Stock.LessThanOrEqual(p.MinStock) && p.MinStock.IsPositive(),
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.AverageCost.Valid {
		avg := p.AverageCost.Decimal
		resp.AverageCost = &avg
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = map[string]any(p.Metadata)
	}
	return resp
}

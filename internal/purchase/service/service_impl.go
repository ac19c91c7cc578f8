package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/costing"
	obslogger "github.com/smallbiznis/recipecost/internal/observability/logger"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Products productdomain.Repository
	Catalog  productdomain.Service
	Reports  cache.ReportCache
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	products productdomain.Repository
	catalog  productdomain.Service
	reports  cache.ReportCache
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("purchase.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		products: p.Products,
		catalog:  p.Catalog,
		reports:  p.Reports,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	supplier := strings.TrimSpace(req.SupplierName)
	if supplier == "" {
		return nil, domain.ErrInvalidSupplier
	}
	purchaseDate, err := time.Parse(domain.DateLayout, strings.TrimSpace(req.PurchaseDate))
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	discount, err := nonNegative(req.Discount, domain.ErrInvalidDiscount)
	if err != nil {
		return nil, err
	}
	taxes, err := nonNegative(req.Taxes, domain.ErrInvalidTaxes)
	if err != nil {
		return nil, err
	}

	purchaseID := s.genID.Generate().Int64()
	items := make([]domain.Item, 0, len(req.Items))
	productIDs := make([]int64, 0, len(req.Items))
	for i, input := range req.Items {
		productID, err := productdomain.ParseID(input.ProductID)
		if err != nil {
			return nil, &domain.ItemError{Index: i, Err: domain.ErrInvalidProduct}
		}
		if !input.Quantity.IsPositive() || !costing.FitsScale(input.Quantity, costing.QuantityPlaces) {
			return nil, &domain.ItemError{Index: i, Err: domain.ErrInvalidQuantity}
		}
		if input.UnitPrice.IsNegative() || !costing.FitsScale(input.UnitPrice, costing.QuantityPlaces) {
			return nil, &domain.ItemError{Index: i, Err: domain.ErrInvalidUnitPrice}
		}
		items = append(items, domain.Item{
			ID:         s.genID.Generate().Int64(),
			PurchaseID: purchaseID,
			ProductID:  productID,
			Position:   i,
			Quantity:   input.Quantity,
			UnitPrice:  input.UnitPrice,
			Subtotal:   input.Quantity.Mul(input.UnitPrice),
		})
		productIDs = append(productIDs, productID)
	}

	subtotal, total := domain.Totals(items, discount, taxes)
	if discount.GreaterThan(subtotal) {
		return nil, domain.ErrInvalidDiscount
	}

	purchase := &domain.Purchase{
		ID:            purchaseID,
		OrgID:         orgID,
		SupplierName:  supplier,
		PurchaseDate:  purchaseDate,
		InvoiceNumber: trimmedPtr(req.InvoiceNumber),
		Discount:      discount,
		Taxes:         taxes,
		Subtotal:      subtotal,
		Total:         total,
		Notes:         trimmedPtr(req.Notes),
		PricesApplied: req.UpdateProductPrices,
		CreatedAt:     s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireProducts(ctx, tx, orgID, productIDs); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, purchase); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		if !req.UpdateProductPrices {
			return nil
		}

		purchased := make([]productdomain.PurchasedItem, 0, len(items))
		for _, item := range items {
			purchased = append(purchased, productdomain.PurchasedItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		return s.catalog.ApplyPurchase(ctx, tx, orgID, purchase.ID, purchased)
	})
	if err != nil {
		return nil, err
	}

	if err := s.reports.InvalidateOrg(ctx, orgID); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report cache invalidation failed", zap.Int64("org_id", orgID), zap.Error(err))
	}
	obslogger.WithContext(ctx, s.log).Info("purchase recorded",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int("items", len(items)),
		zap.Bool("prices_applied", purchase.PricesApplied),
	)

	resp := toResponse(purchase, items)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	purchaseID, err := productdomain.ParseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	purchase, err := s.repo.FindByID(ctx, s.db, orgID, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, []int64{purchase.ID})
	if err != nil {
		return nil, err
	}

	resp := toResponse(purchase, items)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := domain.ParseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	purchases, err := s.repo.List(ctx, s.db, orgID, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(purchases))
	for _, p := range purchases {
		ids = append(ids, p.ID)
	}
	items, err := s.repo.ListItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byPurchase := make(map[int64][]domain.Item, len(purchases))
	for _, item := range items {
		byPurchase[item.PurchaseID] = append(byPurchase[item.PurchaseID], item)
	}

	resp := make([]domain.Response, 0, len(purchases))
	for i := range purchases {
		resp = append(resp, toResponse(&purchases[i], byPurchase[purchases[i].ID]))
	}
	return resp, nil
}

func (s *Service) requireProducts(ctx context.Context, tx *gorm.DB, orgID int64, productIDs []int64) error {
	found, err := s.products.FindByIDsForShare(ctx, tx, orgID, productIDs)
	if err != nil {
		return err
	}
	known := make(map[int64]struct{}, len(found))
	for _, p := range found {
		known[p.ID] = struct{}{}
	}
	for i, id := range productIDs {
		if _, ok := known[id]; !ok {
			return &domain.ItemError{Index: i, Err: domain.ErrInvalidProduct}
		}
	}
	return nil
}

func orgIDFromContext(ctx context.Context) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return int64(orgID), nil
}

func nonNegative(value *decimal.Decimal, invalid error) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if value.IsNegative() {
		return decimal.Zero, invalid
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

func toResponse(p *domain.Purchase, items []domain.Item) domain.Response {
	resp := domain.Response{
		ID:             productdomain.IDString(p.ID),
		OrganizationID: productdomain.IDString(p.OrgID),
		SupplierName:   p.SupplierName,
		PurchaseDate:   p.PurchaseDate.Format(domain.DateLayout),
		InvoiceNumber:  p.InvoiceNumber,
		Discount:       p.Discount,
		Taxes:          p.Taxes,
		Subtotal:       p.Subtotal,
		Total:          p.Total,
		Notes:          p.Notes,
		PricesApplied:  p.PricesApplied,
		Items:          make([]domain.ItemResponse, 0, len(items)),
		CreatedAt:      p.CreatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, domain.ItemResponse{
			ID:        productdomain.IDString(item.ID),
			ProductID: productdomain.IDString(item.ProductID),
			Position:  item.Position,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return resp
}

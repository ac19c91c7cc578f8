package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/costing"
	obslogger "github.com/smallbiznis/recipecost/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipecost/internal/observability/metrics"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/recipe/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const copySuffix = " (cópia)"

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Products productdomain.Repository
	Costing  *config.CostingConfigHolder
	Reports  cache.ReportCache
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	products productdomain.Repository
	costing  *config.CostingConfigHolder
	reports  cache.ReportCache
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("recipe.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		products: p.Products,
		costing:  p.Costing,
		reports:  p.Reports,
		metrics:  p.Metrics,
	}
}

var _ productdomain.SnapshotRecalculator = (*Service)(nil)

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	now := s.clock.Now()
	recipe := &domain.Recipe{
		ID:              s.genID.Generate().Int64(),
		OrgID:           orgID,
		Name:            name,
		Description:     trimmedPtr(req.Description),
		Category:        trimmedPtr(req.Category),
		PortionCount:    1,
		Version:         1,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
		PrepTimeMinutes: req.PrepTimeMinutes,
	}
	if req.Active != nil {
		recipe.Active = *req.Active
	}
	if err := applyPricing(recipe, req.PortionCount, req.DesiredMargin, req.SuggestedSalePrice, req.PrepTimeMinutes); err != nil {
		return nil, err
	}

	calc := s.costing.Get().Calculator()
	lines, productIDs, err := parseIngredients(calc, req.Ingredients)
	if err != nil {
		return nil, err
	}

	var (
		ingredients []domain.Ingredient
		breakdown   costing.Breakdown
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup, products, err := s.lockedLookup(ctx, tx, orgID, productIDs)
		if err != nil {
			return err
		}
		if err := requireActive(lines, products, nil); err != nil {
			return err
		}

		breakdown, err = calc.Rollup(costing.Recipe{
			Name:               recipe.Name,
			Lines:              lines,
			PortionCount:       recipe.PortionCount,
			DesiredMargin:      nullToPtr(recipe.DesiredMargin),
			SuggestedSalePrice: nullToPtr(recipe.SuggestedSalePrice),
		}, lookup)
		if err != nil {
			return err
		}

		if err := s.repo.Create(ctx, tx, recipe); err != nil {
			return err
		}
		ingredients = s.newIngredients(recipe.ID, lines, req.Ingredients)
		if err := s.repo.ReplaceIngredients(ctx, tx, recipe.ID, ingredients); err != nil {
			return err
		}
		return s.repo.UpdateSnapshot(ctx, tx, orgID, recipe.ID, domain.NewSnapshot(breakdown, nil, now))
	})
	if err != nil {
		s.recordFailure(ctx, "create", err)
		return nil, err
	}

	s.metrics.RecordRollup(ctx, "create")
	s.invalidateReports(ctx, orgID)
	resp := toResponse(recipe, ingredients)
	setBreakdown(&resp, breakdown, nil)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	recipeID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	calc := s.costing.Get().Calculator()
	var (
		newLines      []costing.Line
		newProductIDs []int64
	)
	if req.Ingredients != nil {
		newLines, newProductIDs, err = parseIngredients(calc, *req.Ingredients)
		if err != nil {
			return nil, err
		}
	}

	var (
		recipe       *domain.Recipe
		ingredients  []domain.Ingredient
		breakdown    costing.Breakdown
		rollupErr    error
		changedKinds []costing.ChangeKind
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err = s.repo.FindByID(ctx, tx, orgID, recipeID)
		if err != nil {
			return err
		}
		if recipe == nil {
			return domain.ErrNotFound
		}
		ingredients, err = s.repo.ListIngredients(ctx, tx, []int64{recipe.ID})
		if err != nil {
			return err
		}
		before := *recipe
		beforeLines := domain.ToCosting(recipe, ingredients).Lines

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			recipe.Name = name
		}
		if req.Description != nil {
			recipe.Description = trimmedPtr(req.Description)
		}
		if req.Category != nil {
			recipe.Category = trimmedPtr(req.Category)
		}
		if req.Active != nil {
			recipe.Active = *req.Active
		}
		if req.PrepTimeMinutes != nil {
			recipe.PrepTimeMinutes = req.PrepTimeMinutes
		}
		if err := applyPricing(recipe, req.PortionCount, req.DesiredMargin, req.SuggestedSalePrice, req.PrepTimeMinutes); err != nil {
			return err
		}
		changedKinds = pricingChanges(&before, recipe)

		lines := beforeLines
		productIDs := productIDsOf(ingredients)
		if req.Ingredients != nil {
			lines = newLines
			productIDs = newProductIDs
			changedKinds = append(changedKinds, costing.DiffLines(beforeLines, newLines)...)
		}
		if len(changedKinds) == 0 {
			changedKinds = append(changedKinds, costing.RecipeDescriptorChanged)
		}

		lookup, products, err := s.lockedLookup(ctx, tx, orgID, productIDs)
		if err != nil {
			return err
		}
		if req.Ingredients != nil {
			if err := requireActive(lines, products, productIDsOf(ingredients)); err != nil {
				return err
			}
		}

		recipe.Version++
		recipe.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, recipe); err != nil {
			return err
		}
		if req.Ingredients != nil {
			ingredients = s.newIngredients(recipe.ID, lines, *req.Ingredients)
			if err := s.repo.ReplaceIngredients(ctx, tx, recipe.ID, ingredients); err != nil {
				return err
			}
		}

		breakdown, rollupErr = calc.Rollup(domain.ToCosting(recipe, ingredients), lookup)
		if rollupErr != nil && req.Ingredients != nil {
			// A caller replacing the ingredient list must fix the failing line.
			return rollupErr
		}
		return s.repo.UpdateSnapshot(ctx, tx, orgID, recipe.ID, domain.NewSnapshot(breakdown, rollupErr, recipe.UpdatedAt))
	})
	if err != nil {
		s.recordFailure(ctx, "update", err)
		return nil, err
	}

	if rollupErr != nil {
		s.recordFailure(ctx, "update", rollupErr)
	} else {
		s.metrics.RecordRollup(ctx, "update")
	}
	s.invalidateReports(ctx, orgID)
	obslogger.WithContext(ctx, s.log).Debug("recipe updated",
		zap.Int64("recipe_id", recipe.ID),
		zap.Int("version", recipe.Version),
		zap.Any("changes", changedKinds),
	)

	resp := toResponse(recipe, ingredients)
	setBreakdown(&resp, breakdown, rollupErr)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	recipeID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	recipe, err := s.repo.FindByID(ctx, s.db, orgID, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrNotFound
	}

	resps, err := s.costAll(ctx, orgID, []domain.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &resps[0], nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.Classification != "" && !req.Classification.Valid() {
		return nil, domain.ErrInvalidClassification
	}
	if req.Sort != "" && !req.Sort.Valid() {
		return nil, domain.ErrInvalidSort
	}

	recipes, err := s.repo.List(ctx, s.db, orgID, domain.ListFilter{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Active:   req.Active,
		Sort:     req.Sort,
	})
	if err != nil {
		return nil, err
	}

	resps, err := s.costAll(ctx, orgID, recipes)
	if err != nil {
		return nil, err
	}
	if req.Classification == "" {
		return resps, nil
	}

	filtered := resps[:0]
	for _, resp := range resps {
		if resp.Breakdown != nil && resp.Breakdown.Classification == req.Classification {
			filtered = append(filtered, resp)
		}
	}
	return filtered, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return err
	}
	recipeID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := s.repo.FindByID(ctx, tx, orgID, recipeID)
		if err != nil {
			return err
		}
		if recipe == nil {
			return domain.ErrNotFound
		}
		return s.repo.Delete(ctx, tx, orgID, recipeID)
	})
	if err != nil {
		return err
	}

	s.invalidateReports(ctx, orgID)
	return nil
}

func (s *Service) Duplicate(ctx context.Context, id string) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	recipeID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	calc := s.costing.Get().Calculator()
	var (
		copied      *domain.Recipe
		ingredients []domain.Ingredient
		breakdown   costing.Breakdown
		rollupErr   error
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := s.repo.FindByID(ctx, tx, orgID, recipeID)
		if err != nil {
			return err
		}
		if source == nil {
			return domain.ErrNotFound
		}
		sourceIngredients, err := s.repo.ListIngredients(ctx, tx, []int64{source.ID})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		copied = &domain.Recipe{
			ID:                 s.genID.Generate().Int64(),
			OrgID:              orgID,
			Name:               source.Name + copySuffix,
			Description:        source.Description,
			Category:           source.Category,
			PrepTimeMinutes:    source.PrepTimeMinutes,
			PortionCount:       source.PortionCount,
			DesiredMargin:      source.DesiredMargin,
			SuggestedSalePrice: source.SuggestedSalePrice,
			Version:            1,
			Active:             source.Active,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.repo.Create(ctx, tx, copied); err != nil {
			return err
		}

		ingredients = make([]domain.Ingredient, 0, len(sourceIngredients))
		for _, ing := range sourceIngredients {
			ing.ID = s.genID.Generate().Int64()
			ing.RecipeID = copied.ID
			ingredients = append(ingredients, ing)
		}
		if err := s.repo.ReplaceIngredients(ctx, tx, copied.ID, ingredients); err != nil {
			return err
		}

		lookup, _, err := s.lockedLookup(ctx, tx, orgID, productIDsOf(ingredients))
		if err != nil {
			return err
		}
		breakdown, rollupErr = calc.Rollup(domain.ToCosting(copied, ingredients), lookup)
		return s.repo.UpdateSnapshot(ctx, tx, orgID, copied.ID, domain.NewSnapshot(breakdown, rollupErr, now))
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx, orgID)
	resp := toResponse(copied, ingredients)
	setBreakdown(&resp, breakdown, rollupErr)
	return &resp, nil
}

func (s *Service) Preview(ctx context.Context, req domain.PreviewRequest) (*costing.Breakdown, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	draft := &domain.Recipe{PortionCount: 1}
	if err := applyPricing(draft, req.PortionCount, req.DesiredMargin, req.SuggestedSalePrice, nil); err != nil {
		return nil, err
	}

	calc := s.costing.Get().Calculator()
	lines, productIDs, err := parseIngredients(calc, req.Ingredients)
	if err != nil {
		return nil, err
	}
	lookup, _, err := s.lookup(ctx, s.db, orgID, productIDs)
	if err != nil {
		return nil, err
	}

	breakdown, err := calc.Rollup(costing.Recipe{
		Lines:              lines,
		PortionCount:       draft.PortionCount,
		DesiredMargin:      nullToPtr(draft.DesiredMargin),
		SuggestedSalePrice: nullToPtr(draft.SuggestedSalePrice),
	}, lookup)
	if err != nil {
		s.recordFailure(ctx, "preview", err)
		return nil, err
	}
	s.metrics.RecordRollup(ctx, "preview")

	rounded := breakdown.Rounded(costing.PresentationRounding)
	return &rounded, nil
}

// RecalculateForProducts rewrites the snapshot of every recipe that uses one of
// productIDs. A recipe that no longer costs gets its failure recorded instead.
func (s *Service) RecalculateForProducts(ctx context.Context, tx *gorm.DB, orgID int64, productIDs []int64, kinds ...costing.ChangeKind) (int, error) {
	if len(kinds) > 0 && !costing.AnyRequiresRollup(kinds...) {
		return 0, nil
	}

	recipeIDs, err := s.repo.FindRecipeIDsByProducts(ctx, tx, orgID, productIDs)
	if err != nil {
		return 0, err
	}
	if len(recipeIDs) == 0 {
		return 0, nil
	}

	recipes, err := s.repo.FindByIDs(ctx, tx, orgID, recipeIDs)
	if err != nil {
		return 0, err
	}
	byRecipe, lookup, err := s.loadCostingInputs(ctx, tx, orgID, recipes)
	if err != nil {
		return 0, err
	}

	calc := s.costing.Get().Calculator()
	now := s.clock.Now()
	for i := range recipes {
		recipe := &recipes[i]
		breakdown, rollupErr := calc.Rollup(domain.ToCosting(recipe, byRecipe[recipe.ID]), lookup)
		if rollupErr != nil {
			s.recordFailure(ctx, "recalculation", rollupErr)
			obslogger.WithContext(ctx, s.log).Info("recipe snapshot marked as failed",
				zap.Int64("recipe_id", recipe.ID),
				zap.String("kind", costing.Kind(rollupErr)),
			)
		} else {
			s.metrics.RecordRollup(ctx, "recalculation")
		}
		if err := s.repo.UpdateSnapshot(ctx, tx, orgID, recipe.ID, domain.NewSnapshot(breakdown, rollupErr, now)); err != nil {
			return 0, err
		}
	}
	return len(recipes), nil
}

// costAll computes fresh breakdowns for recipes read outside a write.
func (s *Service) costAll(ctx context.Context, orgID int64, recipes []domain.Recipe) ([]domain.Response, error) {
	byRecipe, lookup, err := s.loadCostingInputs(ctx, s.db, orgID, recipes)
	if err != nil {
		return nil, err
	}

	calc := s.costing.Get().Calculator()
	resps := make([]domain.Response, 0, len(recipes))
	for i := range recipes {
		recipe := &recipes[i]
		ingredients := byRecipe[recipe.ID]
		breakdown, rollupErr := calc.Rollup(domain.ToCosting(recipe, ingredients), lookup)
		if rollupErr != nil {
			s.recordFailure(ctx, "read", rollupErr)
		} else {
			s.metrics.RecordRollup(ctx, "read")
		}

		resp := toResponse(recipe, ingredients)
		setBreakdown(&resp, breakdown, rollupErr)
		resps = append(resps, resp)
	}
	return resps, nil
}

func (s *Service) loadCostingInputs(ctx context.Context, db *gorm.DB, orgID int64, recipes []domain.Recipe) (map[int64][]domain.Ingredient, costing.ProductLookup, error) {
	ids := make([]int64, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	ingredients, err := s.repo.ListIngredients(ctx, db, ids)
	if err != nil {
		return nil, nil, err
	}

	byRecipe := make(map[int64][]domain.Ingredient, len(recipes))
	for _, ing := range ingredients {
		byRecipe[ing.RecipeID] = append(byRecipe[ing.RecipeID], ing)
	}

	lookup, _, err := s.lookup(ctx, db, orgID, productIDsOf(ingredients))
	if err != nil {
		return nil, nil, err
	}
	return byRecipe, lookup, nil
}

func (s *Service) lookup(ctx context.Context, db *gorm.DB, orgID int64, productIDs []int64) (costing.ProductLookup, map[string]productdomain.Product, error) {
	return s.lookupWith(ctx, s.products.FindByIDs, db, orgID, productIDs)
}

// lockedLookup is lookup for write transactions: the referenced products stay
// share-locked until commit so the stored snapshot matches their prices.
func (s *Service) lockedLookup(ctx context.Context, tx *gorm.DB, orgID int64, productIDs []int64) (costing.ProductLookup, map[string]productdomain.Product, error) {
	return s.lookupWith(ctx, s.products.FindByIDsForShare, tx, orgID, productIDs)
}

type productFinder func(ctx context.Context, db *gorm.DB, orgID int64, ids []int64) ([]productdomain.Product, error)

func (s *Service) lookupWith(ctx context.Context, find productFinder, db *gorm.DB, orgID int64, productIDs []int64) (costing.ProductLookup, map[string]productdomain.Product, error) {
	products, err := find(ctx, db, orgID, productIDs)
	if err != nil {
		return nil, nil, err
	}
	index := make(map[string]productdomain.Product, len(products))
	for _, p := range products {
		index[strconv.FormatInt(p.ID, 10)] = p
	}
	return productdomain.NewLookup(products), index, nil
}

func (s *Service) newIngredients(recipeID int64, lines []costing.Line, inputs []domain.IngredientInput) []domain.Ingredient {
	out := make([]domain.Ingredient, 0, len(lines))
	units := s.costing.Get().Units
	for i, line := range lines {
		productID, _ := strconv.ParseInt(line.ProductID, 10, 64)
		unit := line.Unit
		if u, err := units.Lookup(line.Unit); err == nil {
			unit = u.Symbol
		}
		out = append(out, domain.Ingredient{
			ID:        s.genID.Generate().Int64(),
			RecipeID:  recipeID,
			ProductID: productID,
			Position:  i,
			Quantity:  line.Quantity,
			Unit:      unit,
			Note:      trimmedPtr(inputs[i].Note),
		})
	}
	return out
}

func (s *Service) recordFailure(ctx context.Context, trigger string, err error) {
	if kind := costing.Kind(err); kind != "" {
		s.metrics.RecordRollupFailure(ctx, trigger, kind)
	}
}

func (s *Service) invalidateReports(ctx context.Context, orgID int64) {
	if err := s.reports.InvalidateOrg(ctx, orgID); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report cache invalidation failed", zap.Int64("org_id", orgID), zap.Error(err))
	}
}

// parseIngredients validates request lines before any product is loaded.
func parseIngredients(calc *costing.Calculator, inputs []domain.IngredientInput) ([]costing.Line, []int64, error) {
	if len(inputs) == 0 {
		return nil, nil, domain.ErrNoIngredients
	}

	lines := make([]costing.Line, 0, len(inputs))
	ids := make([]int64, 0, len(inputs))
	for i, input := range inputs {
		rawID := strings.TrimSpace(input.ProductID)
		id, err := snowflake.ParseString(rawID)
		if err != nil || id <= 0 {
			return nil, nil, &costing.LineError{Index: i, ProductID: rawID, Err: costing.ErrProductNotFound}
		}
		if !input.Quantity.IsPositive() || !costing.FitsScale(input.Quantity, costing.QuantityPlaces) {
			return nil, nil, &costing.LineError{Index: i, ProductID: rawID, Err: costing.ErrInvalidQuantity}
		}
		if _, err := calc.Units().Lookup(input.Unit); err != nil {
			return nil, nil, &costing.LineError{Index: i, ProductID: rawID, Err: costing.ErrUnknownUnit}
		}

		note := ""
		if input.Note != nil {
			note = strings.TrimSpace(*input.Note)
		}
		lines = append(lines, costing.Line{
			ProductID: strconv.FormatInt(id.Int64(), 10),
			Quantity:  input.Quantity,
			Unit:      strings.TrimSpace(input.Unit),
			Note:      note,
		})
		ids = append(ids, id.Int64())
	}
	return lines, ids, nil
}

// requireActive rejects lines that newly reference an inactive product. Products
// in existing are already referenced and keep costing with a warning.
func requireActive(lines []costing.Line, products map[string]productdomain.Product, existing []int64) error {
	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[strconv.FormatInt(id, 10)] = struct{}{}
	}
	for i, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return &costing.LineError{Index: i, ProductID: line.ProductID, Err: costing.ErrProductNotFound}
		}
		if _, referenced := known[line.ProductID]; !p.Active && !referenced {
			return &costing.LineError{Index: i, ProductID: line.ProductID, Err: costing.ErrInactiveProduct}
		}
	}
	return nil
}

func applyPricing(r *domain.Recipe, portions *int, margin, price *decimal.Decimal, prep *int) error {
	if portions != nil {
		if *portions < 1 {
			return domain.ErrInvalidPortionCount
		}
		r.PortionCount = *portions
	}
	if margin != nil {
		if margin.IsNegative() || margin.GreaterThanOrEqual(hundred) {
			return domain.ErrInvalidMargin
		}
		r.DesiredMargin = decimal.NewNullDecimal(*margin)
		if margin.IsZero() {
			r.DesiredMargin = decimal.NullDecimal{}
		}
	}
	if price != nil {
		if price.IsNegative() {
			return domain.ErrInvalidSalePrice
		}
		r.SuggestedSalePrice = decimal.NewNullDecimal(*price)
		if price.IsZero() {
			r.SuggestedSalePrice = decimal.NullDecimal{}
		}
	}
	if prep != nil && *prep < 0 {
		return domain.ErrInvalidPrepTime
	}
	return nil
}

func pricingChanges(before, after *domain.Recipe) []costing.ChangeKind {
	var kinds []costing.ChangeKind
	if before.PortionCount != after.PortionCount {
		kinds = append(kinds, costing.PortionCountChanged)
	}
	if !nullEqual(before.DesiredMargin, after.DesiredMargin) || !nullEqual(before.SuggestedSalePrice, after.SuggestedSalePrice) {
		kinds = append(kinds, costing.SalePricingChanged)
	}
	return kinds
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func nullToPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func productIDsOf(ingredients []domain.Ingredient) []int64 {
	seen := make(map[int64]struct{}, len(ingredients))
	ids := make([]int64, 0, len(ingredients))
	for _, ing := range ingredients {
		if _, ok := seen[ing.ProductID]; ok {
			continue
		}
		seen[ing.ProductID] = struct{}{}
		ids = append(ids, ing.ProductID)
	}
	return ids
}

func setBreakdown(resp *domain.Response, breakdown costing.Breakdown, err error) {
	if err == nil {
		rounded := breakdown.Rounded(costing.PresentationRounding)
		resp.Breakdown = &rounded
		return
	}
	costErr := &domain.CostError{Kind: costing.Kind(err), Message: err.Error()}
	if costErr.Kind == "" {
		costErr.Kind = "costing_failed"
	}
	if idx, ok := costing.LineIndex(err); ok {
		costErr.LineIndex = &idx
		var lineErr *costing.LineError
		if errors.As(err, &lineErr) {
			costErr.ProductID = lineErr.ProductID
		}
	}
	resp.CostError = costErr
}

func toResponse(r *domain.Recipe, ingredients []domain.Ingredient) domain.Response {
	resp := domain.Response{
		ID:                 strconv.FormatInt(r.ID, 10),
		OrganizationID:     strconv.FormatInt(r.OrgID, 10),
		Name:               r.Name,
		Description:        r.Description,
		Category:           r.Category,
		PrepTimeMinutes:    r.PrepTimeMinutes,
		PortionCount:       r.PortionCount,
		DesiredMargin:      nullToPtr(r.DesiredMargin),
		SuggestedSalePrice: nullToPtr(r.SuggestedSalePrice),
		Version:            r.Version,
		Active:             r.Active,
		Ingredients:        make([]domain.IngredientResponse, 0, len(ingredients)),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	for _, ing := range ingredients {
		resp.Ingredients = append(resp.Ingredients, domain.IngredientResponse{
			ID:        strconv.FormatInt(ing.ID, 10),
			ProductID: strconv.FormatInt(ing.ProductID, 10),
			Position:  ing.Position,
			Quantity:  ing.Quantity,
			Unit:      ing.Unit,
			Note:      ing.Note,
		})
	}
	return resp
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func orgIDFromContext(ctx context.Context) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return int64(orgID), nil
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

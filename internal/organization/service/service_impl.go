package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/costing"
	obslogger "github.com/smallbiznis/recipecost/internal/observability/logger"
	"github.com/smallbiznis/recipecost/internal/organization/domain"
	"github.com/smallbiznis/recipecost/internal/orgcontext"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Costing *config.CostingConfigHolder
	Reports cache.ReportCache
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	costing *config.CostingConfigHolder
	reports cache.ReportCache
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("organization.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		costing: p.Costing,
		reports: p.Reports,
	}
}

func (s *Service) Get(ctx context.Context) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(orgID, org)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var name *string
	if req.RestaurantName != nil {
		trimmed := strings.TrimSpace(*req.RestaurantName)
		if n := utf8.RuneCountInString(trimmed); n < domain.MinNameLength || n > domain.MaxNameLength {
			return nil, domain.ErrInvalidName
		}
		name = &trimmed
	}

	var target *decimal.Decimal
	if req.TargetCMV != nil {
		if req.ClearTargetCMV {
			return nil, domain.ErrInvalidTargetCMV
		}
		rounded := costing.PresentationRounding.Percent(*req.TargetCMV)
		if rounded.LessThan(domain.MinTargetCMV) || rounded.GreaterThan(domain.MaxTargetCMV) {
			return nil, domain.ErrInvalidTargetCMV
		}
		target = &rounded
	}

	var saved *domain.Organization
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.repo.FindByID(ctx, tx, orgID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if org == nil {
			org = &domain.Organization{ID: orgID, CreatedAt: now}
		}

		if name != nil {
			org.Name = *name
			org.Slug = slug.Make(*name)
		}
		switch {
		case target != nil:
			org.TargetCMV = decimal.NewNullDecimal(*target)
		case req.ClearTargetCMV:
			org.TargetCMV = decimal.NullDecimal{}
		}
		org.UpdatedAt = now

		if err := s.repo.Upsert(ctx, tx, org); err != nil {
			return err
		}
		saved = org
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The CMV report compares against the target, so cached copies are stale.
	if err := s.reports.InvalidateOrg(ctx, orgID); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("report cache invalidation failed", zap.Int64("org_id", orgID), zap.Error(err))
	}
	obslogger.WithContext(ctx, s.log).Info("organization profile updated",
		zap.Bool("name_changed", name != nil),
		zap.Bool("target_customized", saved.TargetCMV.Valid),
	)

	resp := s.toResponse(orgID, saved)
	return &resp, nil
}

func (s *Service) Profile(ctx context.Context, orgID int64) (domain.Profile, error) {
	profile := domain.Profile{
		RestaurantName: domain.DefaultRestaurantName,
		TargetCMV:      s.costing.Get().TargetCMV,
	}
	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil || org == nil {
		return profile, err
	}
	if org.Name != "" {
		profile.RestaurantName = org.Name
	}
	if org.TargetCMV.Valid {
		profile.TargetCMV = org.TargetCMV.Decimal
		profile.Customized = true
	}
	return profile, nil
}

func (s *Service) toResponse(orgID int64, org *domain.Organization) domain.Response {
	resp := domain.Response{
		ID:                 productdomain.IDString(orgID),
		EffectiveTargetCMV: s.costing.Get().TargetCMV,
	}
	if org == nil {
		return resp
	}

	resp.RestaurantName = org.Name
	resp.Slug = org.Slug
	if org.TargetCMV.Valid {
		target := org.TargetCMV.Decimal
		resp.TargetCMV = &target
		resp.EffectiveTargetCMV = target
	}
	updated := org.UpdatedAt
	resp.UpdatedAt = &updated
	return resp
}

func orgIDFromContext(ctx context.Context) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return int64(orgID), nil
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/recipecost/internal/config"
	obsmiddleware "github.com/smallbiznis/recipecost/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipecost/internal/observability/metrics"
	obstracing "github.com/smallbiznis/recipecost/internal/observability/tracing"
	"github.com/smallbiznis/recipecost/internal/organization"
	organizationdomain "github.com/smallbiznis/recipecost/internal/organization/domain"
	"github.com/smallbiznis/recipecost/internal/product"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/providers"
	"github.com/smallbiznis/recipecost/internal/purchase"
	purchasedomain "github.com/smallbiznis/recipecost/internal/purchase/domain"
	"github.com/smallbiznis/recipecost/internal/recipe"
	recipedomain "github.com/smallbiznis/recipecost/internal/recipe/domain"
	"github.com/smallbiznis/recipecost/internal/report"
	reportdomain "github.com/smallbiznis/recipecost/internal/report/domain"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	providers.Module,
	organization.Module,
	product.Module,
	recipe.Module,
	purchase.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics, tp trace.TracerProvider, log *zap.Logger) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Logger:          log.Named("http"),
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{Provider: tp}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	costing     *config.CostingConfigHolder
	productSvc  productdomain.Service
	recipeSvc   recipedomain.Service
	purchaseSvc purchasedomain.Service
	reportSvc   reportdomain.Service

	organizationSvc organizationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Costing     *config.CostingConfigHolder
	ProductSvc  productdomain.Service
	RecipeSvc   recipedomain.Service
	PurchaseSvc purchasedomain.Service
	ReportSvc   reportdomain.Service

	OrganizationSvc organizationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		costing:     p.Costing,
		productSvc:  p.ProductSvc,
		recipeSvc:   p.RecipeSvc,
		purchaseSvc: p.PurchaseSvc,
		reportSvc:   p.ReportSvc,

		organizationSvc: p.OrganizationSvc,
	}

	svc.RegisterAPIRoutes()
	return svc
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	api.GET("/units", s.ListUnits)

	org := api.Group("", OrgContext())

	org.GET("/organization", s.GetOrganization)
	org.PATCH("/organization", s.UpdateOrganization)

	products := org.Group("/products")
	products.POST("", s.CreateProduct)
	products.GET("", s.ListProducts)
	products.GET("/:id", s.GetProductByID)
	products.PATCH("/:id", s.UpdateProduct)
	products.POST("/:id/archive", s.ArchiveProduct)
	products.DELETE("/:id", s.DeleteProduct)
	products.GET("/:id/price-history", s.ListProductPriceHistory)

	recipes := org.Group("/recipes")
	recipes.POST("", s.CreateRecipe)
	recipes.GET("", s.ListRecipes)
	recipes.POST("/preview", s.PreviewRecipe)
	recipes.GET("/:id", s.GetRecipeByID)
	recipes.PATCH("/:id", s.UpdateRecipe)
	recipes.DELETE("/:id", s.DeleteRecipe)
	recipes.POST("/:id/duplicate", s.DuplicateRecipe)
	recipes.GET("/:id/sheet.pdf", s.RecipeSheetPDF)

	purchases := org.Group("/purchases")
	purchases.POST("", s.CreatePurchase)
	purchases.GET("", s.ListPurchases)
	purchases.GET("/:id", s.GetPurchaseByID)

	reports := org.Group("/reports")
	reports.GET("/cmv", s.CMVReport)
	reports.GET("/purchases", s.PurchaseSummary)
}

package recipe

import (
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	"github.com/smallbiznis/recipecost/internal/recipe/domain"
	"github.com/smallbiznis/recipecost/internal/recipe/repository"
	"github.com/smallbiznis/recipecost/internal/recipe/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recipe.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) productdomain.SnapshotRecalculator { return s }),
)

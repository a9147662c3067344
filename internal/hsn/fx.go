package hsn

import (
	"github.com/smallbiznis/gstengine/internal/hsn/repository"
	"github.com/smallbiznis/gstengine/internal/hsn/service"
	"go.uber.org/fx"
)

var Module = fx.Module("hsn.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewTreeSource),
	fx.Provide(service.NewService),
)

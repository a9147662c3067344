package gst

import (
	"github.com/smallbiznis/gstengine/internal/gst/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gst.service",
	fx.Provide(service.NewEngine),
)

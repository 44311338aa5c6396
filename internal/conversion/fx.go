package conversion

import (
	"github.com/smallbiznis/affiliate/internal/conversion/repository"
	"github.com/smallbiznis/affiliate/internal/conversion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversion.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package link

import (
	"github.com/smallbiznis/affiliate/internal/link/repository"
	"github.com/smallbiznis/affiliate/internal/link/service"
	"go.uber.org/fx"
)

var Module = fx.Module("link.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package account

import (
	"github.com/lafcloud/platform/internal/account/repository"
	"github.com/lafcloud/platform/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package chargeorder

import (
	"github.com/lafcloud/platform/internal/chargeorder/repository"
	"github.com/lafcloud/platform/internal/chargeorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chargeorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package deposit

import (
	"github.com/sevacare/ipdbilling/internal/deposit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deposit.service",
	fx.Provide(service.New),
)

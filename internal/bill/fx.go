package bill

import (
	"github.com/sevacare/ipdbilling/internal/bill/reconstruct"
	"github.com/sevacare/ipdbilling/internal/bill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	reconstruct.Module,
	fx.Provide(service.New),
)

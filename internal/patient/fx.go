package patient

import (
	"github.com/sevacare/ipdbilling/internal/patient/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("patient.directory",
	fx.Provide(repository.Provide),
)

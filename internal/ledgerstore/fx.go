package ledgerstore

import (
	"github.com/sevacare/ipdbilling/internal/ledgerstore/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("ledgerstore",
	fx.Provide(repository.Provide),
)

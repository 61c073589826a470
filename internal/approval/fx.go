package approval

import (
	"github.com/casalist/casalist/internal/approval/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("approval",
	fx.Provide(repository.Provide),
)

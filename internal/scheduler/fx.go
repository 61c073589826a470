package scheduler

import (
	"github.com/casalist/casalist/internal/config"
	"go.uber.org/fx"
)

func configFromApp(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SweepInterval,
		LockTTL:     cfg.SweepLockTTL,
	}
}

var Module = fx.Module("scheduler",
	fx.Provide(configFromApp),
	fx.Provide(New),
)

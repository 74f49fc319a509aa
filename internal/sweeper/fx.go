package sweeper

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
)

var Module = fx.Module("sweeper",
	fx.Provide(
		newRedisClient,
		NewLocker,
		New,
	),
	fx.Invoke(runSweeper),
)

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func runSweeper(lc fx.Lifecycle, sweeper *Sweeper) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sweeper.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

package lock

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/stellapay/stellapay/internal/config"
)

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)

// NewRedisClient returns nil when redis is not configured; the Locker
// tolerates that and callers fall back to lock-free operation.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

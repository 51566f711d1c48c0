package auth

import (
	"context"
	"fmt"
	"log/slog"

	"pkce-relay/internal/config"
	"pkce-relay/internal/metrics"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisprometheus/v9"
	"github.com/redis/go-redis/v9"
)

// NewSessionStore returns the keyed store backing sessions: find, commit and
// delete by session token, with expiry owned by the store.
func NewSessionStore(logger *slog.Logger, cfg *config.Config) (scs.Store, error) {
	switch cfg.Sessions.Store {
	case "memory":
		logger.Debug("using in-memory session store")
		return memstore.New(), nil
	case "redis":
		client := NewRedisClient(logger, cfg.Redis)

		ctx := context.Background()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}

		if cfg.Server.Debug != nil && cfg.Server.Debug.Enabled {
			collector := redisprometheus.NewCollector(metrics.Namespace, "sessions", client)
			if err := prometheus.Register(collector); err != nil {
				logger.Debug("failed to register redis session collector: already registered", "error", err)
			}
		}

		return goredisstore.New(client), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Sessions.Store)
	}
}

func NewRedisClient(logger *slog.Logger, cfg *config.RedisConfig) *redis.Client {
	if cfg.Sentinel != nil {
		logger.Info("connecting to redis via sentinel",
			"master", cfg.Sentinel.MasterName,
			"sentinels", cfg.Sentinel.SentinelAddresses)

		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.Sentinel.MasterName,
			SentinelAddrs:    cfg.Sentinel.SentinelAddresses,
			SentinelUsername: cfg.Sentinel.SentinelUsername,
			SentinelPassword: cfg.Sentinel.SentinelPassword,
			Username:         cfg.Username,
			Password:         cfg.Password,
			DB:               cfg.SessionIndex,
			MinIdleConns:     2,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.SessionIndex,
		MinIdleConns: 2,
	})
}

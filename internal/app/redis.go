package app

import (
	"failover-cache/internal/common/logging"
	"failover-cache/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Settings.CacheRemoteEnabled {
		app.Logger.Info("Redis: Disabled (cache runs local-only)")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:   app.Settings.RedisAddress,
		Password:  app.Settings.RedisPassword,
		DB:        app.Settings.RedisDB,
		PoolSize:  app.Settings.RedisPoolSize,
		KeyPrefix: app.Settings.RedisKeyPrefix,
		Timeout:   app.Settings.RedisTimeout,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected",
		logging.Field{Key: "address", Value: app.Settings.RedisAddress},
		logging.Field{Key: "db", Value: app.Settings.RedisDB},
		logging.Field{Key: "key_prefix", Value: app.Settings.RedisKeyPrefix},
	)
	return nil
}

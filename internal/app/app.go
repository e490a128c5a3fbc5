package app

import (
	"failover-cache/internal/common/cache"
	"failover-cache/internal/common/logging"
	"failover-cache/internal/config"
	"failover-cache/internal/metrics"
	"failover-cache/internal/redis"
	"failover-cache/internal/scheduler"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Settings    config.Settings
	Cache       *cache.FailoverCache
	RedisClient *redis.Client
	Sweeper     *scheduler.Sweeper
	Metrics     *metrics.Registry
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies.
// cfg must already have passed Validate.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:   cfg,
		Settings: cfg.Settings(),
		Logger:   logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, the cache runs local-only without it
		app.Logger.Warn("Redis initialization failed, continuing in local-only mode",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := app.initializeCache(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeSweeper(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.Metrics = metrics.NewRegistry(app.Cache)
	return app, nil
}

func (app *App) initializeCache() error {
	// A nil *redis.Backend stored in the interface would look configured
	var remote cache.RemoteBackend
	if app.RedisClient != nil {
		remote = redis.NewBackend(app.RedisClient)
	}

	c, err := cache.New(cache.Config{
		Capacity:   app.Settings.CacheCapacity,
		DefaultTTL: app.Settings.CacheDefaultTTL,
	}, remote, logging.GetGlobalLogger())
	if err != nil {
		return err
	}

	app.Cache = c
	app.Logger.Info("Cache: Ready",
		logging.Int("capacity", app.Settings.CacheCapacity),
		logging.Duration("default_ttl", app.Settings.CacheDefaultTTL),
		logging.Bool("remote", remote != nil),
	)
	return nil
}

func (app *App) initializeSweeper() error {
	schedule := app.Settings.CacheSweepSchedule
	if schedule == "" {
		app.Logger.Info("Sweeper: Disabled (expired entries are removed on access only)")
		return nil
	}

	sweeper, err := scheduler.NewSweeper(app.Cache, schedule, logging.GetGlobalLogger())
	if err != nil {
		return err
	}
	app.Sweeper = sweeper
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("Error closing Redis client", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

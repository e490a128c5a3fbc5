package app

import (
	"failover-cache/internal/common/logging"
	"failover-cache/internal/common/ratelimit"
)

// InitializeRateLimiter creates the per-client limiter for mutating operator routes
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	limiter, err := ratelimit.NewLocal(app.Settings.AdminRateLimitRPS, app.Settings.AdminRateLimitBurst)
	if err != nil {
		app.Logger.Warn("Rate limiter disabled", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	app.Logger.Info("Rate Limiting: Enabled",
		logging.Int("rps", app.Settings.AdminRateLimitRPS),
		logging.Int("burst", app.Settings.AdminRateLimitBurst),
	)
	return limiter
}

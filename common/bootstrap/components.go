package bootstrap

import (
	"context"

	"github.com/playforge/remoteconfig/common/cache"
	"github.com/playforge/remoteconfig/common/config"
	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/logger"
	rediscommon "github.com/playforge/remoteconfig/common/redis"
	"github.com/playforge/remoteconfig/common/telemetry"
)

// Components holds all initialized service components
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	Redis     *rediscommon.Client
	Cache     cache.Cache
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func() error
}

// addCleanup registers a cleanup function, run in reverse order on shutdown
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs all cleanup functions in reverse order
func (c *Components) Shutdown(ctx context.Context) {
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			if c.Logger != nil {
				c.Logger.Warn("cleanup failed", "error", err)
			}
		}
	}
}

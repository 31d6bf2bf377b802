package bootstrap

import (
	"github.com/playforge/remoteconfig/common/config"
	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/logger"
)

// Option configures bootstrap setup
type Option func(*options)

type options struct {
	skipDB       bool
	skipRedis    bool
	skipCache    bool
	customConfig *config.Config
	customLogger *logger.Logger
	dbInitHook   func(*db.DB) error
}

func defaultOptions() *options {
	return &options{}
}

// WithoutDB skips database initialization
func WithoutDB() Option {
	return func(o *options) {
		o.skipDB = true
	}
}

// WithoutRedis skips Redis initialization
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithConfig uses a pre-built configuration instead of loading from env
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithLogger uses a pre-built logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithDBInitHook runs fn right after the database connects (e.g. migrations)
func WithDBInitHook(fn func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = fn
	}
}

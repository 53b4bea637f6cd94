package runtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/mongo-bridge/cache"
	"github.com/wippyai/mongo-bridge/dispatch"
	"github.com/wippyai/mongo-bridge/engine"
	"github.com/wippyai/mongo-bridge/loader"
	"github.com/wippyai/mongo-bridge/mongo"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the runtime package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs l in this package and every bridge package, each under
// its own name. Call it before New.
func SetLogger(l *zap.Logger) {
	logger = l.Named("runtime")
	cache.SetLogger(l.Named("cache"))
	engine.SetLogger(l.Named("engine"))
	loader.SetLogger(l.Named("loader"))
	dispatch.SetLogger(l.Named("dispatch"))
	mongo.SetLogger(l.Named("mongo"))
}

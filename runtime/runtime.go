package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/mongo-bridge/cache"
	"github.com/wippyai/mongo-bridge/dispatch"
	"github.com/wippyai/mongo-bridge/engine"
	"github.com/wippyai/mongo-bridge/loader"
	"github.com/wippyai/mongo-bridge/mongo"
)

// Runtime is a loaded engine module with its dispatch core.
type Runtime struct {
	core   *dispatch.Core
	handle *loader.Handle
	cfg    Config
	path   string
}

// New resolves the engine binary through the cache, loads it and attaches
// it to a fresh dispatch core. Any cache or load failure aborts New.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	path, err := Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	core := dispatch.New()
	h, err := loader.Load(ctx, path, core,
		loader.WithEngineConfig(engine.Config{MemoryLimitPages: cfg.MemoryLimitPages}),
		loader.WithPollInterval(cfg.PollInterval),
	)
	if err != nil {
		return nil, err
	}

	Logger().Info("runtime ready", zap.String("path", path))
	return &Runtime{core: core, handle: h, cfg: cfg, path: path}, nil
}

// Fetch resolves the engine binary through the cache without loading it
// and returns its local path.
func Fetch(ctx context.Context, cfg Config) (string, error) {
	d, err := cfg.descriptor()
	if err != nil {
		return "", err
	}
	opts, err := cfg.cacheOptions()
	if err != nil {
		return "", err
	}
	dir := cfg.CacheDir
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return cache.NewManager(dir, opts...).Resolve(ctx, d)
}

// Core returns the dispatch core the module is attached to.
func (r *Runtime) Core() *dispatch.Core {
	return r.core
}

// Path returns the cached binary path.
func (r *Runtime) Path() string {
	return r.path
}

// Client returns an unconnected client.
func (r *Runtime) Client() *mongo.Client {
	return mongo.NewClient(r.core)
}

// Connect returns a client connected to uri, or to the configured URI when
// uri is empty.
func (r *Runtime) Connect(uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = r.cfg.URI
	}
	c := mongo.NewClient(r.core)
	if err := c.ConnectWithURI(uri); err != nil {
		return nil, err
	}
	return c, nil
}

// Close unloads the module. Commands still pending never complete.
func (r *Runtime) Close(ctx context.Context) error {
	return r.handle.Close(ctx)
}

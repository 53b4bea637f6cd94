package loader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/mongo-bridge/dispatch"
	"github.com/wippyai/mongo-bridge/engine"
	"github.com/wippyai/mongo-bridge/errors"
)

// DefaultPollInterval is how often a guest with a poll export is polled
// while commands are pending.
const DefaultPollInterval = 2 * time.Millisecond

type options struct {
	engineCfg    *engine.Config
	pollInterval time.Duration
}

// Option configures Load.
type Option func(*options)

// WithEngineConfig sets the wazero engine configuration for WebAssembly
// modules.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *options) { o.engineCfg = &cfg }
}

// WithPollInterval sets the poll pump interval. Non-positive values keep
// the default.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// Handle is a loaded engine module attached to a dispatch core.
type Handle struct {
	callCtx  context.Context
	core     *dispatch.Core
	engine   *engine.WazeroEngine
	instance *engine.WazeroInstance
	native   *nativeModule
	stop     chan struct{}
	pumpDone chan struct{}
	log      *zap.Logger
	path     string
	closeErr error
	format   Format
	once     sync.Once
}

// Load activates the module at path, registers the completion handler and
// attaches the module to core. Loading into a core that already has a
// module is a programming error and panics.
func Load(ctx context.Context, path string, core *dispatch.Core, opts ...Option) (*Handle, error) {
	if core.Attached() {
		panic("loader: core already has a module attached")
	}

	o := options{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	format, err := detectFile(path)
	if err != nil {
		return nil, errors.PluginLoad(path, err)
	}

	h := &Handle{
		callCtx: context.WithoutCancel(ctx),
		core:    core,
		path:    path,
		format:  format,
		log:     Logger().With(zap.String("path", path), zap.Stringer("format", format)),
	}

	switch format {
	case FormatWasm:
		err = h.loadWasm(ctx, o)
	default:
		h.native, err = openNative(path, h.completeNative)
	}
	if err != nil {
		return nil, errors.PluginLoad(path, err)
	}

	core.Attach(h)

	if h.instance != nil && h.instance.HasPoll() {
		h.stop = make(chan struct{})
		h.pumpDone = make(chan struct{})
		go h.pump(o.pollInterval)
	}

	h.log.Info("module loaded")
	return h, nil
}

func (h *Handle) loadWasm(ctx context.Context, o options) error {
	wasmBytes, err := os.ReadFile(h.path)
	if err != nil {
		return err
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, o.engineCfg)
	if err != nil {
		return err
	}
	mod, err := eng.LoadModule(ctx, wasmBytes)
	if err != nil {
		eng.Close(ctx)
		return err
	}
	inst, err := mod.Instantiate(ctx, engine.HostFuncs{
		Complete: func(_ context.Context, envelope []byte) {
			h.core.ResolveEnvelope(envelope)
		},
		Log: h.guestLog,
	})
	if err != nil {
		eng.Close(ctx)
		return err
	}

	h.engine = eng
	h.instance = inst
	return nil
}

func (h *Handle) completeNative(envelope []byte) {
	// The engine may reuse its buffer once the handler returns.
	h.core.ResolveEnvelope(append([]byte(nil), envelope...))
}

func (h *Handle) guestLog(_ context.Context, level zapcore.Level, msg []byte) {
	if ce := h.log.Check(level, string(msg)); ce != nil {
		ce.Write(zap.String("source", "guest"))
	}
}

// Dispatch implements dispatch.Module.
func (h *Handle) Dispatch(control, payload []byte) ([]byte, error) {
	if h.native != nil {
		return h.native.Dispatch(control, payload)
	}
	return h.instance.Command(h.callCtx, control, payload)
}

func (h *Handle) pump(interval time.Duration) {
	defer close(h.pumpDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if h.core.Pending() == 0 {
				continue
			}
			if _, err := h.instance.Poll(h.callCtx); err != nil {
				h.log.Warn("poll failed", zap.Error(err))
			}
		}
	}
}

// Path returns the file the module was loaded from.
func (h *Handle) Path() string {
	return h.path
}

// Format returns the detected binary format.
func (h *Handle) Format() Format {
	return h.format
}

// Close stops the poll pump and releases a WebAssembly module; commands
// dispatched to it afterwards fail. Go plugins cannot be unloaded and stay
// usable.
func (h *Handle) Close(ctx context.Context) error {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
			<-h.pumpDone
		}
		if h.instance != nil {
			if err := h.instance.Close(ctx); err != nil {
				h.closeErr = fmt.Errorf("close instance: %w", err)
			}
		}
		if h.engine != nil {
			if err := h.engine.Close(ctx); err != nil && h.closeErr == nil {
				h.closeErr = fmt.Errorf("close engine: %w", err)
			}
		}
		h.log.Debug("module closed", zap.Int("pending", h.core.Pending()))
	})
	return h.closeErr
}

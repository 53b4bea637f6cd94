package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	mongobridge "github.com/wippyai/mongo-bridge"
)

// HostFuncs are the callbacks behind the env host module. Both receive
// copies of guest memory and must not call back into the instance.
type HostFuncs struct {
	// Complete receives a completion envelope.
	Complete func(ctx context.Context, envelope []byte)
	// Log receives a guest log line. Nil routes lines to the engine logger.
	Log func(ctx context.Context, level zapcore.Level, msg []byte)
}

// GuestLevel maps the guest's log level numbering (0 debug, 1 info, 2 warn,
// 3 error) onto zap levels.
func GuestLevel(level uint32) zapcore.Level {
	switch level {
	case 0:
		return zapcore.DebugLevel
	case 1:
		return zapcore.InfoLevel
	case 2:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func (e *WazeroEngine) instantiateHost(ctx context.Context, host HostFuncs) error {
	if e.runtime.Module(mongobridge.HostModule) != nil {
		return fmt.Errorf("host module %q already instantiated", mongobridge.HostModule)
	}
	complete := host.Complete
	if complete == nil {
		complete = func(context.Context, []byte) {}
	}
	logFn := host.Log
	if logFn == nil {
		logFn = func(_ context.Context, level zapcore.Level, msg []byte) {
			if ce := Logger().Check(level, string(msg)); ce != nil {
				ce.Write(zap.String("source", "guest"))
			}
		}
	}

	builder := e.runtime.NewHostModuleBuilder(mongobridge.HostModule)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			msg, ok := readGuest(mod, stack[0], stack[1])
			if !ok {
				Logger().Warn("completion out of bounds",
					zap.Uint64("ptr", stack[0]),
					zap.Uint64("len", stack[1]))
				return
			}
			complete(ctx, msg)
		}), []api.ValueType{i32, i32}, nil).
		Export(mongobridge.ImportComplete)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			msg, ok := readGuest(mod, stack[1], stack[2])
			if !ok {
				return
			}
			logFn(ctx, GuestLevel(api.DecodeU32(stack[0])), msg)
		}), []api.ValueType{i32, i32, i32}, nil).
		Export(mongobridge.ImportLog)

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module: %w", err)
	}
	return nil
}

func readGuest(mod api.Module, ptr, length uint64) ([]byte, bool) {
	data, ok := mod.Memory().Read(api.DecodeU32(ptr), api.DecodeU32(length))
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// InitWASI instantiates the WASI singleton for this engine's runtime.
// Safe for concurrent calls.
func (e *WazeroEngine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(mongobridge.WASIModule) != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	builder := e.runtime.NewHostModuleBuilder(mongobridge.WASIModule)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	if _, err := builder.Instantiate(ctx); err != nil {
		if e.runtime.Module(mongobridge.WASIModule) == nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

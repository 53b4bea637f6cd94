package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	mongobridge "github.com/wippyai/mongo-bridge"
)

// WazeroEngine hosts WebAssembly engine modules on a wazero runtime
type WazeroEngine struct {
	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &WazeroEngine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Close releases the runtime and every module instantiated in it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// LoadModule compiles wasmBytes and checks it against the guest ABI.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	m := &WazeroModule{engine: e, compiled: compiled}
	if err := m.checkExports(); err != nil {
		compiled.Close(ctx)
		return nil, err
	}
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		switch module {
		case mongobridge.WASIModule:
			m.needsWASI = true
		case mongobridge.HostModule:
			m.hostImports = append(m.hostImports, name)
		default:
			compiled.Close(ctx)
			return nil, fmt.Errorf("unsupported import %s.%s", module, name)
		}
	}

	Logger().Debug("module compiled",
		zap.Strings("exports", m.ExportNames()),
		zap.Strings("host_imports", m.hostImports),
		zap.Bool("wasi", m.needsWASI))
	return m, nil
}

// WazeroModule is a compiled engine module
type WazeroModule struct {
	engine      *WazeroEngine
	compiled    wazero.CompiledModule
	hostImports []string
	needsWASI   bool
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

type exportSig struct {
	params   []api.ValueType
	results  []api.ValueType
	required bool
}

var guestExports = map[string]exportSig{
	mongobridge.ExportAlloc:   {params: []api.ValueType{i32}, results: []api.ValueType{i32}, required: true},
	mongobridge.ExportCommand: {params: []api.ValueType{i32, i32, i32, i32}, results: []api.ValueType{i64}, required: true},
	mongobridge.ExportFree:    {params: []api.ValueType{i32, i32}},
	mongobridge.ExportPoll:    {results: []api.ValueType{i32}},
}

func (m *WazeroModule) checkExports() error {
	if _, ok := m.compiled.ExportedMemories()[mongobridge.ExportMemory]; !ok {
		return fmt.Errorf("missing export %q", mongobridge.ExportMemory)
	}
	exported := m.compiled.ExportedFunctions()
	for name, sig := range guestExports {
		def, ok := exported[name]
		if !ok {
			if sig.required {
				return fmt.Errorf("missing export %q", name)
			}
			continue
		}
		if !sameTypes(def.ParamTypes(), sig.params) || !sameTypes(def.ResultTypes(), sig.results) {
			return fmt.Errorf("export %q has signature %v -> %v, want %v -> %v",
				name, def.ParamTypes(), def.ResultTypes(), sig.params, sig.results)
		}
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExportNames returns the names of all exported functions.
func (m *WazeroModule) ExportNames() []string {
	exported := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(exported))
	for name := range exported {
		names = append(names, name)
	}
	return names
}

// NeedsWASI reports whether the module imports WASI preview1.
func (m *WazeroModule) NeedsWASI() bool {
	return m.needsWASI
}

// Instantiate links the host functions and creates the single instance of
// this module. The host module is registered in the engine's runtime, so an
// engine runs at most one instance.
func (m *WazeroModule) Instantiate(ctx context.Context, host HostFuncs) (*WazeroInstance, error) {
	if m.needsWASI {
		if err := m.engine.InitWASI(ctx); err != nil {
			return nil, err
		}
	}
	if len(m.hostImports) > 0 {
		if err := m.engine.instantiateHost(ctx, host); err != nil {
			return nil, err
		}
	}

	modConfig := wazero.NewModuleConfig().WithName("")
	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	inst := &WazeroInstance{
		instance:  instance,
		memory:    &WazeroMemory{mem: instance.Memory()},
		commandFn: instance.ExportedFunction(mongobridge.ExportCommand),
		pollFn:    instance.ExportedFunction(mongobridge.ExportPoll),
	}
	inst.alloc = &wazeroAllocator{
		allocFn:  instance.ExportedFunction(mongobridge.ExportAlloc),
		freeFn:   instance.ExportedFunction(mongobridge.ExportFree),
		stackBuf: make([]uint64, 2),
	}
	return inst, nil
}

// WazeroInstance is a running engine module. Calls into the guest are
// serialized.
type WazeroInstance struct {
	instance  api.Module
	memory    *WazeroMemory
	alloc     *wazeroAllocator
	commandFn api.Function
	pollFn    api.Function
	stackBuf  [4]uint64
	mu        sync.Mutex
}

// Memory returns the guest's linear memory.
func (i *WazeroInstance) Memory() *WazeroMemory {
	return i.memory
}

// HasPoll reports whether the guest exports a poll function.
func (i *WazeroInstance) HasPoll() bool {
	return i.pollFn != nil
}

// Command copies control and payload into guest memory, runs the command
// export and returns a copy of the synchronous response. The host frees the
// regions it allocated; the response region belongs to the guest.
func (i *WazeroInstance) Command(ctx context.Context, control, payload []byte) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.instance == nil {
		return nil, fmt.Errorf("instance closed")
	}

	ctrlPtr, err := i.writeBytes(ctx, control)
	if err != nil {
		return nil, fmt.Errorf("write control: %w", err)
	}
	defer i.alloc.Free(ctx, ctrlPtr, uint32(len(control)))

	dataPtr, err := i.writeBytes(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("write payload: %w", err)
	}
	defer i.alloc.Free(ctx, dataPtr, uint32(len(payload)))

	i.stackBuf[0] = uint64(ctrlPtr)
	i.stackBuf[1] = uint64(len(control))
	i.stackBuf[2] = uint64(dataPtr)
	i.stackBuf[3] = uint64(len(payload))
	if err := i.commandFn.CallWithStack(ctx, i.stackBuf[:]); err != nil {
		return nil, fmt.Errorf("call %s: %w", mongobridge.ExportCommand, err)
	}

	packed := i.stackBuf[0]
	respPtr, respLen := uint32(packed>>32), uint32(packed)
	if respLen == 0 {
		return nil, nil
	}
	return i.memory.ReadCopy(respPtr, respLen)
}

// Poll gives the guest a chance to deliver completions and returns how many
// it delivered.
func (i *WazeroInstance) Poll(ctx context.Context) (int, error) {
	if i.pollFn == nil {
		return 0, nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.instance == nil {
		return 0, fmt.Errorf("instance closed")
	}
	res, err := i.pollFn.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", mongobridge.ExportPoll, err)
	}
	return int(int32(res[0])), nil
}

func (i *WazeroInstance) writeBytes(ctx context.Context, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	ptr, err := i.alloc.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if err := i.memory.Write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

// Close closes the guest instance. Further calls fail.
func (i *WazeroInstance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.instance == nil {
		return nil
	}
	err := i.instance.Close(ctx)
	i.instance = nil
	return err
}

// wazeroAllocator calls the guest's alloc and free exports. Callers hold the
// instance lock.
type wazeroAllocator struct {
	allocFn  api.Function
	freeFn   api.Function
	stackBuf []uint64
}

func (a *wazeroAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	a.stackBuf[0] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
		return 0, err
	}
	return uint32(a.stackBuf[0]), nil
}

func (a *wazeroAllocator) Free(ctx context.Context, ptr, size uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}
	a.stackBuf[0] = uint64(ptr)
	a.stackBuf[1] = uint64(size)
	if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:2]); err != nil {
		Logger().Warn("Free: failed to call guest free",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

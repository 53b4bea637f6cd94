package engine

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/mongo-bridge/internal/wasmtest"
)

func TestNewWazeroEngineWithConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{MemoryLimitPages: 1024}, "64MB limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := NewWazeroEngineWithConfig(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("NewWazeroEngineWithConfig failed: %v", err)
			}
			defer engine.Close(ctx)

			if engine.runtime == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func TestWazeroEngine_Close(t *testing.T) {
	ctx := context.Background()

	engine, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatalf("NewWazeroEngine failed: %v", err)
	}

	if err := engine.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

type completions struct {
	msgs [][]byte
	logs []string
	mu   sync.Mutex
}

func (c *completions) host() HostFuncs {
	return HostFuncs{
		Complete: func(_ context.Context, msg []byte) {
			c.mu.Lock()
			c.msgs = append(c.msgs, msg)
			c.mu.Unlock()
		},
		Log: func(_ context.Context, level zapcore.Level, msg []byte) {
			c.mu.Lock()
			c.logs = append(c.logs, level.String()+":"+string(msg))
			c.mu.Unlock()
		},
	}
}

func instantiate(t *testing.T, opts wasmtest.GuestOptions, host HostFuncs) *WazeroInstance {
	t.Helper()
	ctx := context.Background()

	eng, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatalf("NewWazeroEngine: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })

	mod, err := eng.LoadModule(ctx, wasmtest.Guest(opts))
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	inst, err := mod.Instantiate(ctx, host)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	t.Cleanup(func() { inst.Close(ctx) })
	return inst
}

func TestLoadModule_ChecksExports(t *testing.T) {
	ctx := context.Background()
	eng, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(ctx)

	_, err = eng.LoadModule(ctx, wasmtest.Guest(wasmtest.GuestOptions{OmitCommand: true}))
	if err == nil || !strings.Contains(err.Error(), "mongo_command") {
		t.Errorf("err = %v, want missing mongo_command", err)
	}

	_, err = eng.LoadModule(ctx, []byte("\x00asm\x02\x00\x00\x00"))
	if err == nil {
		t.Error("bad version compiled")
	}

	// (module (memory 1)) has no command entry point at all.
	bare := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
	}
	if _, err := eng.LoadModule(ctx, bare); err == nil {
		t.Error("module without exports accepted")
	}
}

func TestLoadModule_DetectsImports(t *testing.T) {
	ctx := context.Background()
	eng, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(ctx)

	mod, err := eng.LoadModule(ctx, wasmtest.Guest(wasmtest.GuestOptions{WASI: true, Log: true}))
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if !mod.NeedsWASI() {
		t.Error("NeedsWASI = false")
	}
	if len(mod.hostImports) != 2 {
		t.Errorf("host imports = %v", mod.hostImports)
	}
	names := strings.Join(mod.ExportNames(), ",")
	for _, want := range []string{"mongo_alloc", "mongo_free", "mongo_command"} {
		if !strings.Contains(names, want) {
			t.Errorf("exports %s missing %s", names, want)
		}
	}
}

func TestInstance_CommandEcho(t *testing.T) {
	rec := &completions{}
	inst := instantiate(t, wasmtest.GuestOptions{}, rec.host())
	ctx := context.Background()

	payload := []byte(`{"command_id":0,"data":[1,2]}`)
	resp, err := inst.Command(ctx, []byte(`{"command_type":"Find"}`), payload)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if string(resp) != string(payload) {
		t.Errorf("resp = %s, want %s", resp, payload)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 1 || string(rec.msgs[0]) != string(payload) {
		t.Errorf("completions = %q", rec.msgs)
	}
	if inst.HasPoll() {
		t.Error("echo guest reports poll")
	}
}

func TestInstance_EmptyPayload(t *testing.T) {
	inst := instantiate(t, wasmtest.GuestOptions{}, HostFuncs{})

	resp, err := inst.Command(context.Background(), []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("resp = %q, want empty", resp)
	}
}

func TestInstance_DeferredPoll(t *testing.T) {
	rec := &completions{}
	inst := instantiate(t, wasmtest.GuestOptions{Deferred: true, Log: true}, rec.host())
	ctx := context.Background()

	control := []byte(`{"command_type":"Count"}`)
	resp, err := inst.Command(ctx, control, []byte("later"))
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if string(resp) != string(control) {
		t.Errorf("resp = %s, want control echo", resp)
	}
	if !inst.HasPoll() {
		t.Fatal("deferred guest has no poll")
	}

	n, err := inst.Poll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Poll = %d, %v; want 1", n, err)
	}
	n, err = inst.Poll(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second Poll = %d, %v; want 0", n, err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 1 || string(rec.msgs[0]) != "later" {
		t.Errorf("completions = %q", rec.msgs)
	}
	if len(rec.logs) != 1 || rec.logs[0] != "info:"+string(control) {
		t.Errorf("logs = %q", rec.logs)
	}
}

func TestInstance_WASIImport(t *testing.T) {
	inst := instantiate(t, wasmtest.GuestOptions{WASI: true}, HostFuncs{})
	if _, err := inst.Command(context.Background(), []byte(`{}`), []byte("x")); err != nil {
		t.Fatalf("Command: %v", err)
	}
}

func TestInstance_ClosedRejectsCalls(t *testing.T) {
	inst := instantiate(t, wasmtest.GuestOptions{Deferred: true}, HostFuncs{})
	ctx := context.Background()

	if err := inst.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := inst.Command(ctx, []byte(`{}`), nil); err == nil {
		t.Error("Command after Close succeeded")
	}
	if _, err := inst.Poll(ctx); err == nil {
		t.Error("Poll after Close succeeded")
	}
}

func TestInstance_ConcurrentCommands(t *testing.T) {
	rec := &completions{}
	inst := instantiate(t, wasmtest.GuestOptions{}, rec.host())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := inst.Command(ctx, []byte(`{}`), []byte("p")); err != nil {
				t.Errorf("Command: %v", err)
			}
		}()
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 16 {
		t.Errorf("completions = %d, want 16", len(rec.msgs))
	}
}

func TestMemory_Bounds(t *testing.T) {
	inst := instantiate(t, wasmtest.GuestOptions{}, HostFuncs{})
	mem := inst.Memory()

	if mem.Size() != 16*65536 {
		t.Errorf("Size = %d", mem.Size())
	}
	if err := mem.Write(mem.Size()-2, []byte("abc")); err == nil {
		t.Error("write past end succeeded")
	}
	if _, err := mem.Read(mem.Size(), 1); err == nil {
		t.Error("read past end succeeded")
	}
	if err := mem.Write(8, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	got, err := mem.ReadCopy(8, 3)
	if err != nil || string(got) != "abc" {
		t.Errorf("ReadCopy = %q, %v", got, err)
	}
}

func TestGuestLevel(t *testing.T) {
	tests := []struct {
		in   uint32
		want zapcore.Level
	}{
		{0, zapcore.DebugLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.WarnLevel},
		{3, zapcore.ErrorLevel},
		{42, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		if got := GuestLevel(tt.in); got != tt.want {
			t.Errorf("GuestLevel(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

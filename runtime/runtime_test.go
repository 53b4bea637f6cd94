package runtime

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/mongo-bridge/cache"
	"github.com/wippyai/mongo-bridge/errors"
	"github.com/wippyai/mongo-bridge/internal/wasmtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func guestConfig(t *testing.T, opts wasmtest.GuestOptions) Config {
	t.Helper()
	src := writeFile(t, "libmongo_bridge.so", wasmtest.Guest(opts))
	return Config{
		CacheDir: filepath.Join(t.TempDir(), "plugins"),
		Platform: cache.Linux,
		Descriptor: &cache.Descriptor{
			Name:    "mongo_bridge",
			Sources: map[cache.Platform]string{cache.Linux: "file://" + src},
		},
		PollInterval: time.Millisecond,
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "bridge.yaml", []byte(`
cache_dir: /tmp/bridge
release_url: https://example.com/v1
hash: sha256
platform: darwin
poll_interval: 5ms
memory_limit_pages: 256
uri: mongodb://localhost:27017
descriptor:
  name: engine
  refresh: true
  sources:
    linux: file:///opt/libengine.so
`))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bridge", cfg.CacheDir)
	assert.Equal(t, "https://example.com/v1", cfg.ReleaseURL)
	assert.Equal(t, "sha256", cfg.Hash)
	assert.Equal(t, cache.Darwin, cfg.Platform)
	assert.Equal(t, 5*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, uint32(256), cfg.MemoryLimitPages)
	assert.Equal(t, "mongodb://localhost:27017", cfg.URI)
	require.NotNil(t, cfg.Descriptor)
	assert.Equal(t, "engine", cfg.Descriptor.Name)
	assert.True(t, cfg.Descriptor.Refresh)
	assert.Equal(t, "file:///opt/libengine.so", cfg.Descriptor.Sources[cache.Linux])
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindIO))
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, "bridge.yaml", []byte("cache_directory: /tmp\n"))
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindInvalidData))
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeFile(t, "bridge.yaml", []byte("poll_interval: soon\n"))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}

func TestDefaultDescriptor(t *testing.T) {
	d := DefaultDescriptor("https://example.com/v1")
	assert.Equal(t, DefaultModuleName, d.Name)
	assert.Equal(t, map[cache.Platform]string{
		cache.Linux:   "https://example.com/v1/libmongo_bridge.so",
		cache.Darwin:  "https://example.com/v1/libmongo_bridge.dylib",
		cache.Windows: "https://example.com/v1/mongo_bridge.dll",
	}, d.Sources)
}

func TestNew_ConfigErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{CacheDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, err = New(ctx, Config{CacheDir: t.TempDir(), Descriptor: &cache.Descriptor{}})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, err = New(ctx, Config{CacheDir: t.TempDir(), ReleaseURL: "https://example.com", Hash: "crc32"})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestNew_SourceMissing(t *testing.T) {
	cfg := guestConfig(t, wasmtest.GuestOptions{})
	cfg.Descriptor.Sources[cache.Linux] = filepath.Join(t.TempDir(), "absent.so")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSourceMissing))
}

func TestNew_UnsupportedPlatform(t *testing.T) {
	cfg := guestConfig(t, wasmtest.GuestOptions{})
	cfg.Platform = cache.Platform("plan9")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedPlatform))
}

func TestNew_PluginLoadFailure(t *testing.T) {
	cfg := guestConfig(t, wasmtest.GuestOptions{OmitCommand: true})

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrPluginLoad))
}

func TestRuntime_Connect(t *testing.T) {
	ctx := context.Background()
	cfg := guestConfig(t, wasmtest.GuestOptions{})
	cfg.URI = "5"

	rt, err := New(ctx, cfg)
	require.NoError(t, err)
	defer rt.Close(ctx)

	assert.FileExists(t, rt.Path())
	assert.True(t, rt.Core().Attached())

	// The echo guest answers a connect with its payload, so the URI doubles
	// as the client id.
	c, err := rt.Connect("")
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.ID())
	assert.True(t, c.Connected())

	c, err = rt.Connect("9")
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.ID())

	_, err = rt.Connect("not-a-number")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidData))
}

func TestRuntime_ReusesCachedBinary(t *testing.T) {
	ctx := context.Background()
	cfg := guestConfig(t, wasmtest.GuestOptions{})

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	// The source disappearing no longer matters once the binary is cached.
	src := cfg.Descriptor.Sources[cache.Linux]
	require.NoError(t, os.Remove(src[len("file://"):]))

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close(ctx)
	assert.Equal(t, first.Path(), second.Path())
}

func TestRuntime_ClientBeforeConnect(t *testing.T) {
	ctx := context.Background()
	cfg := guestConfig(t, wasmtest.GuestOptions{Deferred: true})

	rt, err := New(ctx, cfg)
	require.NoError(t, err)
	defer rt.Close(ctx)

	c := rt.Client()
	assert.False(t, c.Connected())
	_, err = c.ListDatabases(ctx)
	assert.True(t, stderrors.Is(err, errors.ErrNotInitialized))
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	ctx := context.Background()
	rt, err := New(ctx, guestConfig(t, wasmtest.GuestOptions{}))
	require.NoError(t, err)
	defer rt.Close(ctx)

	assert.NotZero(t, logs.FilterLoggerName("runtime").FilterMessage("runtime ready").Len())
	assert.NotZero(t, logs.FilterLoggerName("cache").Len())
	assert.NotZero(t, logs.FilterLoggerName("loader").Len())
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	cfg := guestConfig(t, wasmtest.GuestOptions{})

	path, err := Fetch(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.CacheDir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, wasmtest.Guest(wasmtest.GuestOptions{}), data)
}

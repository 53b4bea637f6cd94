package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/mongo-bridge/mongo"
	"github.com/wippyai/mongo-bridge/runtime"
)

type globals struct {
	configPath string
	cacheDir   string
	releaseURL string
	uri        string
	logLevel   string
	refresh    bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "bridge",
		Short:         "Run MongoDB commands through the engine module",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := newLogger(g.logLevel)
			if err != nil {
				return err
			}
			runtime.SetLogger(l)
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	f.StringVar(&g.cacheDir, "cache-dir", "", "directory for cached engine binaries")
	f.StringVar(&g.releaseURL, "release-url", "", "base URL of the engine release")
	f.StringVar(&g.uri, "uri", "", "MongoDB connection string")
	f.StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	f.BoolVar(&g.refresh, "refresh", false, "download the engine even when cached")

	root.AddCommand(
		newFetchCmd(g),
		newDatabasesCmd(g),
		newCollectionsCmd(g),
		newFindCmd(g),
		newCountCmd(g),
		newInsertCmd(g),
		newShellCmd(g),
	)
	return root
}

// newLogger builds a console logger writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// config loads the config file, if any, and applies flag overrides.
func (g *globals) config() (runtime.Config, error) {
	var cfg runtime.Config
	if g.configPath != "" {
		var err error
		if cfg, err = runtime.LoadConfig(g.configPath); err != nil {
			return runtime.Config{}, err
		}
	}
	if g.cacheDir != "" {
		cfg.CacheDir = g.cacheDir
	}
	if g.releaseURL != "" {
		cfg.ReleaseURL = g.releaseURL
		cfg.Descriptor = nil
	}
	if g.uri != "" {
		cfg.URI = g.uri
	}
	if g.refresh {
		if cfg.Descriptor == nil {
			d := runtime.DefaultDescriptor(cfg.ReleaseURL)
			cfg.Descriptor = &d
		}
		cfg.Descriptor.Refresh = true
	}
	return cfg, nil
}

// connect starts the runtime and opens a client. The returned close func
// releases both.
func (g *globals) connect(ctx context.Context) (*mongo.Client, func(), error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := rt.Connect("")
	if err != nil {
		rt.Close(ctx)
		return nil, nil, err
	}
	return client, func() { rt.Close(ctx) }, nil
}

// printJSON writes v as indented extended JSON.
func printJSON(w io.Writer, v any) error {
	wire, err := mongo.Convert(v)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// parseDocument parses a JSON argument into a document value, or returns
// an empty document for an empty string.
func parseDocument(name, s string) (any, error) {
	if s == "" {
		return mongo.M{}, nil
	}
	v, err := mongo.Parse([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

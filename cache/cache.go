package cache

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/mongo-bridge/errors"
)

// Manager resolves descriptors to binaries in a flat cache directory.
type Manager struct {
	client   *http.Client
	logger   *zap.Logger
	group    singleflight.Group
	dir      string
	platform Platform
	hash     HashAlgorithm
}

// Option configures a Manager.
type Option func(*Manager)

// WithPlatform overrides the detected host platform.
func WithPlatform(p Platform) Option {
	return func(m *Manager) { m.platform = p }
}

// WithHash selects the cache key digest. MD5 is the default.
func WithHash(h HashAlgorithm) Option {
	return func(m *Manager) { m.hash = h }
}

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithLogger sets the manager's logger. It defaults to the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager rooted at dir. The directory is created on
// first Resolve.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:      dir,
		platform: CurrentPlatform(),
		hash:     MD5,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = Logger()
	}
	return m
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the cache location for d on the manager's platform and the
// source it would be fetched from. It does not touch the filesystem.
func (m *Manager) Path(d Descriptor) (path, source string, err error) {
	suffix, ok := m.platform.Suffix()
	if !ok {
		return "", "", errors.UnsupportedPlatform(d.Name, string(m.platform))
	}
	source, ok = d.Sources[m.platform]
	if !ok || source == "" {
		return "", "", errors.UnsupportedPlatform(d.Name, string(m.platform))
	}
	name := d.Name + "_" + m.hash.Key(source, suffix) + suffix
	return filepath.Join(m.dir, name), source, nil
}

// Resolve returns the local path of d's binary for the current platform,
// fetching it into the cache when absent or when d.Refresh is set. An
// existing entry is trusted without verifying its contents.
func (m *Manager) Resolve(ctx context.Context, d Descriptor) (string, error) {
	target, source, err := m.Path(d)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", errors.New(errors.PhaseCache, errors.KindIO).
			Path(m.dir).
			Cause(err).
			Detail("create cache directory").
			Build()
	}

	log := m.logger
	if d.Quiet {
		log = zap.NewNop()
	}
	log = log.With(zap.String("module", d.Name), zap.String("path", target))

	if !d.Refresh && exists(target) {
		log.Debug("using cached binary")
		return target, nil
	}

	// Callers racing on the same entry share a single fetch.
	_, err, shared := m.group.Do(target, func() (any, error) {
		if !d.Refresh && exists(target) {
			return nil, nil
		}
		return nil, m.fetch(ctx, log, d.Name, source, target)
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug("joined in-flight fetch")
	}
	return target, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

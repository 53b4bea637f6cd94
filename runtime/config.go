package runtime

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/mongo-bridge/cache"
	"github.com/wippyai/mongo-bridge/errors"
)

// DefaultModuleName names the engine binary in release archives and in the
// cache directory.
const DefaultModuleName = "mongo_bridge"

// Config describes how to obtain, load and connect the engine module.
type Config struct {
	// Descriptor overrides the one derived from ReleaseURL.
	Descriptor *cache.Descriptor `yaml:"descriptor"`
	// CacheDir defaults to DefaultCacheDir().
	CacheDir string `yaml:"cache_dir"`
	// ReleaseURL is the base URL holding lib{name}.so, lib{name}.dylib and
	// {name}.dll.
	ReleaseURL string `yaml:"release_url"`
	// Hash is md5 (default), sha1 or sha256.
	Hash string `yaml:"hash"`
	// Platform overrides the host platform for binary selection.
	Platform cache.Platform `yaml:"platform"`
	// URI is the default connection string for Connect.
	URI string `yaml:"uri"`
	// PollInterval sets how often a polling engine is driven.
	PollInterval     time.Duration `yaml:"poll_interval"`
	MemoryLimitPages uint32        `yaml:"memory_limit_pages"`
}

// DefaultCacheDir returns the per-user cache location, falling back to a
// directory under the working directory.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mongo-bridge")
	}
	return ".mongo_bridge"
}

// DefaultDescriptor builds the descriptor for a release published under
// releaseURL.
func DefaultDescriptor(releaseURL string) cache.Descriptor {
	return cache.Descriptor{
		Name: DefaultModuleName,
		Sources: map[cache.Platform]string{
			cache.Darwin:  releaseURL + "/lib" + DefaultModuleName + ".dylib",
			cache.Linux:   releaseURL + "/lib" + DefaultModuleName + ".so",
			cache.Windows: releaseURL + "/" + DefaultModuleName + ".dll",
		},
	}
}

// LoadConfig reads a YAML configuration file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindIO).
			Path(path).
			Cause(err).
			Detail("open config").
			Build()
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path(path).
			Cause(err).
			Detail("decode config").
			Build()
	}
	return cfg, nil
}

// descriptor returns the descriptor to resolve.
func (c Config) descriptor() (cache.Descriptor, error) {
	switch {
	case c.Descriptor != nil:
		if c.Descriptor.Name == "" {
			return cache.Descriptor{}, errors.InvalidInput(errors.PhaseConfig, "descriptor name is required")
		}
		return *c.Descriptor, nil
	case c.ReleaseURL != "":
		return DefaultDescriptor(c.ReleaseURL), nil
	default:
		return cache.Descriptor{}, errors.InvalidInput(errors.PhaseConfig, "either release_url or descriptor is required")
	}
}

func (c Config) cacheOptions() ([]cache.Option, error) {
	h, err := cache.ParseHashAlgorithm(c.Hash)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "hash")
	}
	opts := []cache.Option{cache.WithHash(h)}
	if c.Platform != "" {
		opts = append(opts, cache.WithPlatform(c.Platform))
	}
	return opts, nil
}

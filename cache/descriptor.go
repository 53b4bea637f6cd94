package cache

import (
	"runtime"
)

// Platform identifies a host operating system with a known shared library
// suffix.
type Platform string

const (
	Linux   Platform = "linux"
	Darwin  Platform = "darwin"
	Windows Platform = "windows"
)

// Suffix returns the library file extension for p, and false when p is not
// one of the known platforms.
func (p Platform) Suffix() (string, bool) {
	switch p {
	case Linux:
		return ".so", true
	case Darwin:
		return ".dylib", true
	case Windows:
		return ".dll", true
	default:
		return "", false
	}
}

// CurrentPlatform returns the platform the process runs on. Unknown
// operating systems come back as-is and fail suffix lookup.
func CurrentPlatform() Platform {
	return Platform(runtime.GOOS)
}

// Descriptor names a module and where to obtain its binary on each platform.
// A source is a local path, a file:// URL, or an http(s) URL.
type Descriptor struct {
	Sources map[Platform]string `yaml:"sources"`
	Name    string              `yaml:"name"`
	// Refresh ignores an existing cache entry and fetches again.
	Refresh bool `yaml:"refresh"`
	// Quiet suppresses progress logging for this descriptor.
	Quiet bool `yaml:"quiet"`
}

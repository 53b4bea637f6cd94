// Package cache resolves engine module binaries into a local cache directory.
//
// A Descriptor maps each Platform to a source. Resolve picks the source for
// the host platform, derives a cache key from the source and the platform's
// library suffix, and returns the path of the cached file:
//
//	m := cache.NewManager(dir)
//	path, err := m.Resolve(ctx, cache.Descriptor{
//		Name: "mongo",
//		Sources: map[cache.Platform]string{
//			cache.Linux:  "https://example.com/v1/libmongo.so",
//			cache.Darwin: "https://example.com/v1/libmongo.dylib",
//		},
//	})
//
// Cache entries are named {name}_{hex(hash(source+suffix))}{suffix}. A
// present entry is reused without a fetch unless Refresh is set. Local
// sources (plain paths and file:// URLs) are copied; everything else is
// fetched with HTTP GET and must answer 200. Fetched bytes land in a
// temporary file that is renamed into place, so a failed fetch never leaves
// a partial entry.
//
// Cached contents are not verified; the key only covers the source string.
package cache

// Package runtime wires the cache, loader, dispatch core and facade
// together.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.Config{
//	    ReleaseURL: "https://example.com/releases/v0.9.0",
//	    URI:        "mongodb://localhost:27017",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	client, err := rt.Connect("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	names, err := client.ListDatabases(ctx)
//
// # Configuration
//
// Config can be loaded from YAML:
//
//	cache_dir: /var/cache/mongo-bridge
//	release_url: https://example.com/releases/v0.9.0
//	hash: md5
//	poll_interval: 2ms
//	memory_limit_pages: 1024
//	uri: mongodb://localhost:27017
//
// A descriptor block replaces the release URL when binaries live elsewhere:
//
//	descriptor:
//	  name: mongo_bridge
//	  refresh: false
//	  quiet: false
//	  sources:
//	    linux: file:///opt/engine/libmongo_bridge.so
//	    darwin: https://example.com/libmongo_bridge.dylib
//
// # Logging
//
// SetLogger installs one zap logger across all bridge packages, named per
// package.
package runtime

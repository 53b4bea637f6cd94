// Package mongobridge drives a dynamically loaded MongoDB engine module from
// Go through a narrow command/response channel.
//
// # Architecture Overview
//
//	mongobridge/         Root package with guest ABI names and memory interfaces
//	├── cache/           Per-platform binary resolution into a local cache
//	├── loader/          Activates a binary and attaches it to a dispatch core
//	├── engine/          wazero integration for WebAssembly engine modules
//	├── dispatch/        Command envelopes and completion correlation
//	├── mongo/           Client, Database and Collection facade
//	├── runtime/         Bootstrap and YAML configuration
//	├── errors/          Structured error types
//	└── cmd/bridge/      Command line client
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, runtime.Config{
//		CacheDir:   "/var/cache/mongo-bridge",
//		ReleaseURL: "https://example.com/releases/v0.9.0",
//	})
//	if err != nil {
//		return err
//	}
//	defer rt.Close(ctx)
//
//	client, err := rt.Connect("mongodb://localhost:27017")
//	users := client.Database("app").Collection("users")
//	n, err := users.Count(ctx, map[string]any{"active": true})
//
// # Engine Modules
//
// Two binary formats are accepted. A WebAssembly module (recognised by its
// magic header) runs in-process under wazero and must follow the guest ABI
// named by the Export and Import constants in this package. Any other file
// is opened as a Go plugin exporting SymbolCommand and SymbolAsyncHandler.
//
// Connect commands return their result synchronously. Every other command
// returns immediately and its result arrives later as a completion envelope
// {"command_id": n, "data": ...}, matched to the caller by id.
package mongobridge

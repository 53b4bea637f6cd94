// Package loader activates a cached engine binary and attaches it to a
// dispatch core.
//
// Load inspects the file header. WebAssembly modules run in-process through
// the engine package; every other file is opened as a Go plugin. Either way
// the module's completion hook is wired to Core.ResolveEnvelope before the
// module is attached, so completions produced during the very first command
// are routed.
//
//	core := dispatch.New()
//	h, err := loader.Load(ctx, path, core)
//	if err != nil {
//		return err // errors.ErrPluginLoad
//	}
//	defer h.Close(ctx)
//
// A WebAssembly guest that exports mongo_poll is polled on a background
// goroutine while the core has pending commands. Close stops it.
//
// A core accepts one module. Calling Load with a core that already has one
// panics.
package loader

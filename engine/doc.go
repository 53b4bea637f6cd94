// Package engine runs WebAssembly engine modules on wazero.
//
// The package provides three types:
//
//	WazeroEngine   - owns a wazero runtime
//	WazeroModule   - a compiled module checked against the guest ABI
//	WazeroInstance - the running module; Command and Poll call into it
//
// # Instantiation Flow
//
//  1. WazeroEngine.LoadModule compiles the binary and verifies the exports
//     named in the mongobridge package (memory, alloc, command, and the
//     optional free and poll).
//  2. WazeroModule.Instantiate links WASI preview1 when the module imports
//     it and registers the env host module with the HostFuncs callbacks.
//  3. WazeroInstance.Command writes the control envelope and payload into
//     guest memory and returns the synchronous response.
//
// # Memory Ownership
//
// Buffers passed into the guest are allocated with the guest's alloc export
// and released with free, when exported, after the call returns. The
// response region is owned by the guest and copied out before the instance
// lock is released. Data passed to host callbacks is always a copy.
//
// # Thread Safety
//
// A WazeroInstance serializes Command and Poll with a mutex. Host callbacks
// run on the calling goroutine while that mutex is held, so they must not
// call back into the instance.
package engine

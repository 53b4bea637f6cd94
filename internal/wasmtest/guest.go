// Package wasmtest assembles small engine modules for tests.
//
// The modules follow the guest ABI: they export memory, a bump allocator,
// free and the command entry point, and import the env completion hook.
package wasmtest

// GuestOptions selects the behaviour of the assembled guest.
type GuestOptions struct {
	// Deferred stores the payload and delivers it from the poll export
	// instead of completing inside the command call. The command then
	// returns the control envelope.
	Deferred bool
	// Log makes the command call the env log hook with the control
	// envelope at info level.
	Log bool
	// OmitCommand leaves out the command export.
	OmitCommand bool
	// WASI adds an import of wasi_snapshot_preview1.proc_exit.
	WASI bool
}

const (
	typeVoid2    = 0 // (i32, i32) -> ()
	typeAlloc    = 1 // (i32) -> i32
	typeCommand  = 2 // (i32, i32, i32, i32) -> i64
	typePoll     = 3 // () -> i32
	typeVoid3    = 4 // (i32, i32, i32) -> ()
	typeVoid1    = 5 // (i32) -> ()
	valI32       = 0x7f
	valI64       = 0x7e
	opEnd        = 0x0b
	opElse       = 0x05
	opIf         = 0x04
	opCall       = 0x10
	opLocalGet   = 0x20
	opGlobalGet  = 0x23
	opGlobalSet  = 0x24
	opI32Const   = 0x41
	opI64Const   = 0x42
	opI32Add     = 0x6a
	opI64Or      = 0x84
	opI64Shl     = 0x86
	opI64ExtendU = 0xad
	heapBase     = 1024
)

// Guest returns the binary of an engine module.
//
// Echo mode (the default): command(ctrl, data) calls env.mongo_complete with
// the payload and returns the payload as the synchronous response. A test
// passes a completion envelope as the payload to have it routed back.
//
// Deferred mode: command stores the payload and returns the control
// envelope; the next poll delivers the stored payload and returns 1, later
// polls return 0.
func Guest(opts GuestOptions) []byte {
	var imports [][]byte
	imports = append(imports, importFunc("env", "mongo_complete", typeVoid2))
	completeIdx := byte(0)
	logIdx := byte(0)
	if opts.Log {
		logIdx = byte(len(imports))
		imports = append(imports, importFunc("env", "mongo_log", typeVoid3))
	}
	if opts.WASI {
		imports = append(imports, importFunc("wasi_snapshot_preview1", "proc_exit", typeVoid1))
	}
	base := byte(len(imports))

	allocIdx, freeIdx := base, base+1
	funcs := [][]byte{{typeAlloc}, {typeVoid2}}
	bodies := [][]byte{allocBody(), {}}
	exports := [][]byte{
		export("memory", 0x02, 0),
		export("mongo_alloc", 0x00, allocIdx),
		export("mongo_free", 0x00, freeIdx),
	}

	next := base + 2
	if !opts.OmitCommand {
		funcs = append(funcs, []byte{typeCommand})
		bodies = append(bodies, commandBody(opts, completeIdx, logIdx))
		exports = append(exports, export("mongo_command", 0x00, next))
		next++
	}
	if opts.Deferred {
		funcs = append(funcs, []byte{typePoll})
		bodies = append(bodies, pollBody(completeIdx))
		exports = append(exports, export("mongo_poll", 0x00, next))
	}

	globals := [][]byte{global(heapBase), global(0), global(0), global(0)}

	var codes [][]byte
	for _, b := range bodies {
		codes = append(codes, code(b))
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, vec(
		funcType([]byte{valI32, valI32}, nil),
		funcType([]byte{valI32}, []byte{valI32}),
		funcType([]byte{valI32, valI32, valI32, valI32}, []byte{valI64}),
		funcType(nil, []byte{valI32}),
		funcType([]byte{valI32, valI32, valI32}, nil),
		funcType([]byte{valI32}, nil),
	))...)
	out = append(out, section(2, vec(imports...))...)
	out = append(out, section(3, vec(funcs...))...)
	out = append(out, section(5, vec([]byte{0x00, 0x10}))...)
	out = append(out, section(6, vec(globals...))...)
	out = append(out, section(7, vec(exports...))...)
	out = append(out, section(10, vec(codes...))...)
	return out
}

// alloc(n): old := heap; heap += n; return old
func allocBody() []byte {
	return []byte{
		opGlobalGet, 0,
		opGlobalGet, 0,
		opLocalGet, 0,
		opI32Add,
		opGlobalSet, 0,
	}
}

// pack leaves (local[ptr] << 32) | local[len] on the stack as an i64.
func pack(ptr, length byte) []byte {
	return []byte{
		opLocalGet, ptr,
		opI64ExtendU,
		opI64Const, 32,
		opI64Shl,
		opLocalGet, length,
		opI64ExtendU,
		opI64Or,
	}
}

func commandBody(opts GuestOptions, completeIdx, logIdx byte) []byte {
	var b []byte
	if opts.Log {
		b = append(b, opI32Const, 1, opLocalGet, 0, opLocalGet, 1, opCall, logIdx)
	}
	if opts.Deferred {
		b = append(b,
			opLocalGet, 2, opGlobalSet, 1,
			opLocalGet, 3, opGlobalSet, 2,
			opI32Const, 1, opGlobalSet, 3,
		)
		return append(b, pack(0, 1)...)
	}
	b = append(b, opLocalGet, 2, opLocalGet, 3, opCall, completeIdx)
	return append(b, pack(2, 3)...)
}

func pollBody(completeIdx byte) []byte {
	return []byte{
		opGlobalGet, 3,
		opIf, valI32,
		opGlobalGet, 1, opGlobalGet, 2, opCall, completeIdx,
		opI32Const, 0, opGlobalSet, 3,
		opI32Const, 1,
		opElse,
		opI32Const, 0,
		opEnd,
	}
}

func importFunc(module, name string, typeIdx byte) []byte {
	b := str(module)
	b = append(b, str(name)...)
	return append(b, 0x00, typeIdx)
}

func export(name string, kind, idx byte) []byte {
	return append(str(name), kind, idx)
}

func global(init int64) []byte {
	b := []byte{valI32, 0x01, opI32Const}
	b = append(b, sleb(init)...)
	return append(b, opEnd)
}

func funcType(params, results []byte) []byte {
	b := []byte{0x60}
	b = append(b, uleb(uint64(len(params)))...)
	b = append(b, params...)
	b = append(b, uleb(uint64(len(results)))...)
	return append(b, results...)
}

// code wraps an instruction sequence as a function body with no locals.
func code(instrs []byte) []byte {
	body := append([]byte{0x00}, instrs...)
	body = append(body, opEnd)
	return append(uleb(uint64(len(body))), body...)
}

func section(id byte, content []byte) []byte {
	b := []byte{id}
	b = append(b, uleb(uint64(len(content)))...)
	return append(b, content...)
}

func vec(items ...[]byte) []byte {
	b := uleb(uint64(len(items)))
	for _, item := range items {
		b = append(b, item...)
	}
	return b
}

func str(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func uleb(v uint64) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func sleb(v int64) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

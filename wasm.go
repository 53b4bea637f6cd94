package mongobridge

// Guest ABI names. A WebAssembly engine module exports the functions below
// and may import the host functions from HostModule.
const (
	// ExportMemory is the guest's linear memory.
	ExportMemory = "memory"
	// ExportAlloc reserves n bytes of guest memory: (i32) -> i32.
	ExportAlloc = "mongo_alloc"
	// ExportFree releases a region returned by ExportAlloc: (i32, i32). Optional.
	ExportFree = "mongo_free"
	// ExportCommand runs one command:
	// (ctrl_ptr, ctrl_len, data_ptr, data_len i32) -> i64, the synchronous
	// response packed as ptr<<32 | len.
	ExportCommand = "mongo_command"
	// ExportPoll lets the guest make progress on outstanding async commands:
	// () -> i32, the number of completions delivered. Optional.
	ExportPoll = "mongo_poll"

	HostModule = "env"
	// ImportComplete delivers a completion envelope: (ptr, len i32).
	ImportComplete = "mongo_complete"
	// ImportLog writes a guest log line: (level, ptr, len i32).
	ImportLog = "mongo_log"

	WASIModule = "wasi_snapshot_preview1"
)

// Native shared object symbols.
const (
	// SymbolCommand has type func(control, payload []byte) []byte.
	SymbolCommand = "MongoCommand"
	// SymbolAsyncHandler has type func(func(envelope []byte)).
	SymbolAsyncHandler = "SetAsyncHandler"
)

// Memory represents guest linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// MemorySizer provides the current size of guest linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

package loader

import (
	"bytes"
	"io"
	"os"
)

// Format is the binary format of an engine module.
type Format uint8

const (
	// FormatNative is a Go plugin shared object.
	FormatNative Format = iota
	// FormatWasm is a WebAssembly core module.
	FormatWasm
)

func (f Format) String() string {
	switch f {
	case FormatWasm:
		return "wasm"
	default:
		return "native"
	}
}

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// DetectFormat classifies a binary by its leading bytes.
func DetectFormat(head []byte) Format {
	if bytes.HasPrefix(head, wasmMagic) {
		return FormatWasm
	}
	return FormatNative
}

func detectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, len(wasmMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, err
	}
	return DetectFormat(head[:n]), nil
}

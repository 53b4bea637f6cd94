package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	mongobridge "github.com/wippyai/mongo-bridge"
)

var (
	_ mongobridge.Memory      = (*WazeroMemory)(nil)
	_ mongobridge.MemorySizer = (*WazeroMemory)(nil)
)

// WazeroMemory wraps wazero memory to implement mongobridge.Memory
type WazeroMemory struct {
	mem api.Memory
}

// Read returns a view of guest memory. The view is only valid until the next
// call into the guest.
func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

// ReadCopy is Read followed by a copy the caller owns.
func (m *WazeroMemory) ReadCopy(offset uint32, length uint32) ([]byte, error) {
	data, err := m.Read(offset, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	return m.mem.Size()
}

package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/mongo-bridge/errors"
)

// Module is the loaded engine's command entry point. Dispatch sends the
// control envelope and payload and returns the synchronous response bytes.
// For async commands the response is ignored; the result arrives later as a
// completion envelope.
type Module interface {
	Dispatch(control, payload []byte) ([]byte, error)
}

// Core owns the attached module and the pending command table.
type Core struct {
	module  atomic.Pointer[moduleRef]
	pending map[uint64]chan []byte
	nextID  atomic.Uint64
	mu      sync.Mutex
}

type moduleRef struct {
	Module
}

// New creates a core with no module attached.
func New() *Core {
	return &Core{
		pending: make(map[uint64]chan []byte),
	}
}

// Attach installs the module. A core accepts exactly one module for its
// lifetime; attaching twice panics.
func (c *Core) Attach(m Module) {
	if m == nil {
		panic("dispatch: Attach with nil module")
	}
	if !c.module.CompareAndSwap(nil, &moduleRef{m}) {
		panic("dispatch: module already attached")
	}
	Logger().Debug("module attached")
}

// Attached reports whether a module has been installed.
func (c *Core) Attached() bool {
	return c.module.Load() != nil
}

func (c *Core) loaded() (Module, error) {
	ref := c.module.Load()
	if ref == nil {
		return nil, errors.NotInitialized("module")
	}
	return ref.Module, nil
}

// DispatchSync invokes the module and returns its response immediately.
// Only connection setup uses it.
func (c *Core) DispatchSync(cmd Command, payload []byte) ([]byte, error) {
	m, err := c.loaded()
	if err != nil {
		return nil, err
	}

	control, err := cmd.encode()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "encode control")
	}

	resp, err := m.Dispatch(control, payload)
	if err != nil {
		return nil, errors.New(errors.PhaseDispatch, errors.KindIO).
			Path(cmd.Type.String()).
			Cause(err).
			Detail("sync dispatch").
			Build()
	}
	return resp, nil
}

// DispatchAsync allocates the next command id, registers a pending entry and
// invokes the module. The returned Future resolves when the matching
// completion arrives, in whatever order completions are delivered.
func (c *Core) DispatchAsync(cmd Command, payload []byte) (*Future, error) {
	m, err := c.loaded()
	if err != nil {
		return nil, err
	}

	id := c.nextID.Add(1) - 1
	control, err := cmd.withID(id).encode()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "encode control")
	}

	// The entry must exist before the module runs: engines may complete
	// during the Dispatch call itself.
	ch := make(chan []byte, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if _, err := m.Dispatch(control, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, errors.New(errors.PhaseDispatch, errors.KindIO).
			Path(cmd.Type.String()).
			Value(id).
			Cause(err).
			Detail("async dispatch").
			Build()
	}

	Logger().Debug("command dispatched",
		zap.Uint64("command_id", id),
		zap.Stringer("command_type", cmd.Type))

	return &Future{id: id, ch: ch}, nil
}

// Complete delivers a completion to its pending entry. It reports false when
// no entry matches, in which case the completion is dropped.
func (c *Core) Complete(comp Completion) bool {
	c.mu.Lock()
	ch, ok := c.pending[comp.CommandID]
	if ok {
		delete(c.pending, comp.CommandID)
	}
	c.mu.Unlock()

	if !ok {
		Logger().Debug("dropping completion without pending command",
			zap.Uint64("command_id", comp.CommandID))
		return false
	}

	// One-slot buffer and single removal: never blocks.
	ch <- []byte(comp.Data)
	return true
}

// ResolveEnvelope decodes a raw completion envelope and delivers it. It is
// the completion handler the loader registers with the engine and must not
// block.
func (c *Core) ResolveEnvelope(msg []byte) {
	comp, err := DecodeCompletion(msg)
	if err != nil {
		Logger().Warn("undecodable completion envelope",
			zap.Int("len", len(msg)),
			zap.Error(err))
		return
	}
	c.Complete(comp)
}

// Pending returns the number of in-flight async commands.
func (c *Core) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Future is the single-resolution handle returned by DispatchAsync.
type Future struct {
	ch   chan []byte
	data []byte
	id   uint64
	done bool
}

// ID returns the command id stamped into the envelope.
func (f *Future) ID() uint64 {
	return f.id
}

// Done returns a channel that receives the payload once. Use either Done or
// Wait, not both.
func (f *Future) Done() <-chan []byte {
	return f.ch
}

// Wait blocks until the completion arrives or ctx ends. Abandoning the wait
// leaves the pending entry in place until the engine completes it. Calling
// Wait again after success returns the same payload.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	if f.done {
		return f.data, nil
	}
	select {
	case data := <-f.ch:
		f.data, f.done = data, true
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

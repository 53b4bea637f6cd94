package mongo

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/mongo-bridge/dispatch"
)

type seenCall struct {
	payload []byte
	cmd     dispatch.Command
}

// fakeEngine answers connects synchronously with connectID and completes
// every async command from its own goroutine after a random delay, so
// completions arrive out of dispatch order. A non-nil gate holds every
// completion until it is closed.
type fakeEngine struct {
	core      *dispatch.Core
	handlers  map[dispatch.CommandType]func(payload []byte) string
	gate      chan struct{}
	connectID string
	calls     []seenCall
	wg        sync.WaitGroup
	mu        sync.Mutex
}

func newFake(t *testing.T) (*fakeEngine, *Client) {
	t.Helper()
	core := dispatch.New()
	f := &fakeEngine{
		core:      core,
		connectID: "1",
		handlers:  make(map[dispatch.CommandType]func([]byte) string),
	}
	core.Attach(f)
	t.Cleanup(f.wg.Wait)
	return f, NewClient(core)
}

func connected(t *testing.T) (*fakeEngine, *Client) {
	t.Helper()
	f, c := newFake(t)
	if err := c.ConnectWithURI("mongodb://localhost:27017"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return f, c
}

func (f *fakeEngine) on(ct dispatch.CommandType, h func(payload []byte) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[ct] = h
}

func (f *fakeEngine) reply(ct dispatch.CommandType, data string) {
	f.on(ct, func([]byte) string { return data })
}

func (f *fakeEngine) Dispatch(control, payload []byte) ([]byte, error) {
	var cmd dispatch.Command
	if err := json.Unmarshal(control, &cmd); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, seenCall{cmd: cmd, payload: append([]byte(nil), payload...)})
	h := f.handlers[cmd.Type]
	gate := f.gate
	f.mu.Unlock()

	if cmd.Type.Connects() {
		return []byte(f.connectID), nil
	}

	resp := "null"
	if h != nil {
		resp = h(payload)
	}
	id := *cmd.CommandID
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if gate != nil {
			<-gate
		}
		time.Sleep(time.Duration(rand.IntN(2000)) * time.Microsecond)
		env, _ := dispatch.EncodeCompletion(id, []byte(resp))
		f.core.ResolveEnvelope(env)
	}()
	return nil, nil
}

func (f *fakeEngine) lastCall(t *testing.T) seenCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func decodePayload(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("payload %s: %v", payload, err)
	}
	return m
}

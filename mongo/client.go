package mongo

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/mongo-bridge/dispatch"
	"github.com/wippyai/mongo-bridge/errors"
)

// Client is a logical connection held by the engine. It is safe for
// concurrent use once connected.
type Client struct {
	core      *dispatch.Core
	id        atomic.Int64
	connected atomic.Bool
}

// NewClient creates an unconnected client over core.
func NewClient(core *dispatch.Core) *Client {
	return &Client{core: core}
}

// ConnectWithURI opens a connection from a MongoDB connection string. It
// blocks until the engine answers.
func (c *Client) ConnectWithURI(uri string) error {
	return c.connect(dispatch.ConnectWithURI, []byte(uri))
}

// ConnectWithOptions opens a connection from structured options.
func (c *Client) ConnectWithOptions(opts ClientOptions) error {
	payload, err := json.Marshal(opts)
	if err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "encode client options")
	}
	return c.connect(dispatch.ConnectWithOptions, payload)
}

func (c *Client) connect(t dispatch.CommandType, payload []byte) error {
	resp, err := c.core.DispatchSync(dispatch.ConnectCommand(t), payload)
	if err != nil {
		return err
	}
	if err := checkError(t, resp); err != nil {
		return err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(resp)), 10, 64)
	if err != nil {
		return errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(t.String()).
			Cause(err).
			Detail("connection id %q", resp).
			Build()
	}
	c.id.Store(id)
	c.connected.Store(true)
	Logger().Debug("connected", zap.Int64("client_id", id), zap.Stringer("via", t))
	return nil
}

// ID returns the engine's connection identifier, 0 before connect.
func (c *Client) ID() int64 {
	return c.id.Load()
}

// Connected reports whether a connect call succeeded.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// ListDatabases returns the names of all databases.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	data, err := c.call(ctx, dispatch.ListDatabases, nil)
	if err != nil {
		return nil, err
	}
	return parseNames(data)
}

// Database returns a handle to the named database. No command is sent.
func (c *Client) Database(name string) *Database {
	return &Database{client: c, name: name}
}

// call dispatches one async command and waits for its completion. payload
// is sent as-is when it is a []byte and JSON encoded otherwise.
func (c *Client) call(ctx context.Context, t dispatch.CommandType, payload any) ([]byte, error) {
	if !c.connected.Load() {
		return nil, errors.NotInitialized("client connection")
	}

	var body []byte
	switch p := payload.(type) {
	case nil:
	case []byte:
		body = p
	default:
		var err error
		if body, err = json.Marshal(p); err != nil {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Path(t.String()).
				Cause(err).
				Detail("encode payload").
				Build()
		}
	}

	start := time.Now()
	fut, err := c.core.DispatchAsync(dispatch.NewCommand(t, c.id.Load()), body)
	if err != nil {
		return nil, err
	}
	data, err := fut.Wait(ctx)
	if err != nil {
		return nil, err
	}

	Logger().Debug("command completed",
		zap.Stringer("command_type", t),
		zap.Uint64("command_id", fut.ID()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(data)))

	if err := checkError(t, data); err != nil {
		return nil, err
	}
	return data, nil
}

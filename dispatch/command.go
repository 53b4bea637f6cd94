package dispatch

import (
	"encoding/json"
	"fmt"
)

// CommandType is the closed set of operations the engine understands.
type CommandType uint8

const (
	ConnectWithURI CommandType = iota
	ConnectWithOptions
	ListDatabases
	ListCollectionNames
	Find
	InsertOne
	InsertMany
	Delete
	Update
	Aggregate
	Count
	CreateIndexes

	commandTypeCount
)

// String returns the wire tag.
func (t CommandType) String() string {
	switch t {
	case ConnectWithURI:
		return "ConnectWithUri"
	case ConnectWithOptions:
		return "ConnectWithOptions"
	case ListDatabases:
		return "ListDatabases"
	case ListCollectionNames:
		return "ListCollectionNames"
	case Find:
		return "Find"
	case InsertOne:
		return "InsertOne"
	case InsertMany:
		return "InsertMany"
	case Delete:
		return "Delete"
	case Update:
		return "Update"
	case Aggregate:
		return "Aggregate"
	case Count:
		return "Count"
	case CreateIndexes:
		return "CreateIndexes"
	default:
		return fmt.Sprintf("CommandType(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the known tags.
func (t CommandType) Valid() bool {
	return t < commandTypeCount
}

// Connects reports whether t establishes a connection. Connect commands are
// dispatched synchronously and carry no client id.
func (t CommandType) Connects() bool {
	return t == ConnectWithURI || t == ConnectWithOptions
}

func (t CommandType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("dispatch: invalid command type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *CommandType) UnmarshalText(text []byte) error {
	for c := CommandType(0); c < commandTypeCount; c++ {
		if c.String() == string(text) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("dispatch: unknown command type %q", text)
}

// Command is the control envelope sent alongside a payload. It is built
// fresh for every call and not modified after dispatch.
type Command struct {
	ClientID  *int64      `json:"client_id,omitempty"`
	CommandID *uint64     `json:"command_id,omitempty"`
	Type      CommandType `json:"command_type"`
}

// NewCommand builds a command bound to a connection.
func NewCommand(t CommandType, clientID int64) Command {
	return Command{Type: t, ClientID: &clientID}
}

// ConnectCommand builds a connect command, which has no client id yet.
func ConnectCommand(t CommandType) Command {
	return Command{Type: t}
}

// withID returns a copy of c stamped with an async command id.
func (c Command) withID(id uint64) Command {
	c.CommandID = &id
	return c
}

func (c Command) encode() ([]byte, error) {
	return json.Marshal(c)
}

// Completion is the envelope the engine emits when an async command finishes.
type Completion struct {
	Data      json.RawMessage `json:"data"`
	CommandID uint64          `json:"command_id"`
}

// DecodeCompletion parses a completion envelope.
func DecodeCompletion(msg []byte) (Completion, error) {
	var c Completion
	if err := json.Unmarshal(msg, &c); err != nil {
		return Completion{}, err
	}
	return c, nil
}

// EncodeCompletion renders a completion envelope. Engines written in Go and
// test doubles use it to answer async commands.
func EncodeCompletion(id uint64, data []byte) ([]byte, error) {
	if len(data) == 0 {
		data = []byte("null")
	}
	return json.Marshal(Completion{CommandID: id, Data: data})
}

package mongo

import (
	"github.com/wippyai/mongo-bridge/errors"
)

// ObjectID is a document identifier. It travels as {"$oid": "<hex>"}.
type ObjectID struct {
	Hex string `json:"$oid"`
}

// ObjectIDFromHex validates s as exactly 24 hexadecimal characters, either
// case.
func ObjectIDFromHex(s string) (ObjectID, error) {
	if !isObjectIDHex(s) {
		return ObjectID{}, errors.InvalidIdentifier(s)
	}
	return ObjectID{Hex: s}, nil
}

// MustObjectID is ObjectIDFromHex for constants. It panics on invalid input.
func MustObjectID(s string) ObjectID {
	id, err := ObjectIDFromHex(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ObjectID) String() string {
	return `ObjectId("` + id.Hex + `")`
}

func isObjectIDHex(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

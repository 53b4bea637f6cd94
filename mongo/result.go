package mongo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wippyai/mongo-bridge/dispatch"
	"github.com/wippyai/mongo-bridge/errors"
)

// nativeError is the body of the {"$error": ...} marker. The engine sends
// either an object or a bare message string.
type nativeError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// checkError reports a NativeCommand error when data is an object whose only
// key is "$error".
func checkError(t dispatch.CommandType, data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || len(obj) != 1 {
		return nil
	}
	raw, ok := obj["$error"]
	if !ok {
		return nil
	}

	var ne nativeError
	var msg string
	switch {
	case json.Unmarshal(raw, &msg) == nil:
		ne.Message = msg
	case json.Unmarshal(raw, &ne) == nil:
	default:
		ne.Message = string(raw)
	}
	if ne.Message == "" {
		ne.Message = "engine reported an error"
	}
	return errors.NativeCommand(t.String(), ne.Message, ne.Code)
}

func parseDocs(data []byte) ([]M, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case nil:
		return []M{}, nil
	case []any:
		docs := make([]M, 0, len(x))
		for i, e := range x {
			doc, ok := e.(M)
			if !ok {
				return nil, errors.InvalidData(errors.PhaseDecode, []string{fmt.Sprint(i)},
					fmt.Sprintf("expected document, got %T", e))
			}
			docs = append(docs, doc)
		}
		return docs, nil
	case M:
		return []M{x}, nil
	default:
		return nil, errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("expected documents, got %T", v))
	}
}

func parseDoc(data []byte) (M, error) {
	docs, err := parseDocs(data)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// parseCount accepts a bare number or an object with one numeric field such
// as {"deletedCount": n}.
func parseCount(data []byte) (int64, error) {
	v, err := Parse(data)
	if err != nil {
		return 0, err
	}
	if m, ok := v.(M); ok && len(m) == 1 {
		for _, e := range m {
			v = e
		}
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("expected count, got %T", v))
	}
}

func parseList(data []byte) ([]any, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return x, nil
	case M:
		// {"insertedIds": {"0": id, ...}} or any single-key wrapper.
		if len(x) == 1 {
			for _, e := range x {
				if list, ok := e.([]any); ok {
					return list, nil
				}
			}
		}
	}
	return nil, errors.InvalidData(errors.PhaseDecode, nil, fmt.Sprintf("expected array, got %T", v))
}

// parseNames accepts an array of strings or an array of {"name": ...}
// documents.
func parseNames(data []byte) ([]string, error) {
	list, err := parseList(data)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for i, e := range list {
		switch x := e.(type) {
		case string:
			names = append(names, x)
		case M:
			name, ok := x["name"].(string)
			if !ok {
				return nil, errors.InvalidData(errors.PhaseDecode, []string{fmt.Sprint(i), "name"}, "missing name")
			}
			names = append(names, name)
		default:
			return nil, errors.InvalidData(errors.PhaseDecode, []string{fmt.Sprint(i)},
				fmt.Sprintf("expected name, got %T", e))
		}
	}
	return names, nil
}

package mongo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/wippyai/mongo-bridge/errors"
)

// M is a document: the decoded form of a wire object.
type M = map[string]any

var (
	timeType      = reflect.TypeOf(time.Time{})
	objectIDType  = reflect.TypeOf(ObjectID{})
	rawType       = reflect.TypeOf(json.RawMessage(nil))
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// Convert maps a Go value onto the wire document model. time.Time values
// become {"$date": {"$numberLong": <ms since epoch>}} and ObjectID values
// become {"$oid": hex}. Maps with string keys, slices, arrays and structs are
// walked recursively; struct fields follow their json tags. Other scalars pass
// through unchanged.
func Convert(v any) (any, error) {
	return convertValue(reflect.ValueOf(v), nil)
}

func dateWire(t time.Time) M {
	return M{"$date": M{"$numberLong": t.UnixMilli()}}
}

func convertValue(v reflect.Value, path []string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Type() {
	case timeType:
		return dateWire(v.Interface().(time.Time)), nil
	case objectIDType:
		return M{"$oid": v.Interface().(ObjectID).Hex}, nil
	case rawType:
		return v.Interface(), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return convertValue(v.Elem(), path)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, errors.InvalidData(errors.PhaseEncode, path,
				fmt.Sprintf("unsupported map key type %s", v.Type().Key()))
		}
		if v.IsNil() {
			return nil, nil
		}
		out := make(M, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			c, err := convertValue(iter.Value(), append(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = c
		}
		return out, nil

	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface(), nil
		}
		return convertSeq(v, path)

	case reflect.Array:
		return convertSeq(v, path)

	case reflect.Struct:
		if v.Type().Implements(marshalerType) {
			return marshalRaw(v, path)
		}
		return convertStruct(v, path)

	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, errors.InvalidData(errors.PhaseEncode, path,
			fmt.Sprintf("unsupported type %s", v.Type()))

	default:
		if v.Type().Implements(marshalerType) {
			return marshalRaw(v, path)
		}
		return v.Interface(), nil
	}
}

func convertSeq(v reflect.Value, path []string) (any, error) {
	out := make([]any, v.Len())
	for i := range out {
		c, err := convertValue(v.Index(i), append(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func marshalRaw(v reflect.Value, path []string) (any, error) {
	b, err := v.Interface().(json.Marshaler).MarshalJSON()
	if err != nil {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Path(path...).
			Cause(err).
			Build()
	}
	return json.RawMessage(b), nil
}

func convertStruct(v reflect.Value, path []string) (any, error) {
	t := v.Type()
	out := make(M, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts := parseTag(f.Tag.Get("json"))
		if name == "-" && opts == "" {
			continue
		}
		fv := v.Field(i)

		if f.Anonymous && name == "" {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct && fv.Type() != timeType && fv.Type() != objectIDType {
				embedded, err := convertStruct(fv, path)
				if err != nil {
					return nil, err
				}
				for k, e := range embedded.(M) {
					if _, taken := out[k]; !taken {
						out[k] = e
					}
				}
				continue
			}
		}

		if name == "" {
			name = f.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		if hasOption(opts, "omitzero") && fv.IsZero() {
			continue
		}
		c, err := convertValue(fv, append(path, name))
		if err != nil {
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}

func parseTag(tag string) (name, opts string) {
	name, opts, _ = strings.Cut(tag, ",")
	return name, opts
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// Parse decodes wire JSON into Go values. A single-key {"$date": ...}
// object becomes a UTC time.Time and a single-key {"$oid": hex} object an
// ObjectID. Integers decode as int64 and other numbers as float64.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Cause(err).
			Detail("decode payload").
			Build()
	}
	return parseValue(v, nil)
}

func parseValue(v any, path []string) (any, error) {
	switch x := v.(type) {
	case []any:
		for i := range x {
			p, err := parseValue(x[i], append(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			x[i] = p
		}
		return x, nil

	case map[string]any:
		if len(x) == 1 {
			if d, ok := x["$date"]; ok {
				return parseDate(d, append(path, "$date"))
			}
			if hex, ok := x["$oid"].(string); ok {
				return ObjectID{Hex: hex}, nil
			}
		}
		for k, e := range x {
			p, err := parseValue(e, append(path, k))
			if err != nil {
				return nil, err
			}
			x[k] = p
		}
		return x, nil

	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("number %s out of range", x))
		}
		return f, nil

	default:
		return x, nil
	}
}

// parseDate accepts {"$numberLong": n} with n a number or decimal string, a
// bare millisecond number, or an RFC 3339 string.
func parseDate(v any, path []string) (time.Time, error) {
	switch d := v.(type) {
	case map[string]any:
		if n, ok := d["$numberLong"]; ok && len(d) == 1 {
			ms, err := parseMillis(n)
			if err != nil {
				return time.Time{}, errors.InvalidData(errors.PhaseDecode, path, err.Error())
			}
			return time.UnixMilli(ms).UTC(), nil
		}
	case json.Number:
		ms, err := d.Int64()
		if err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	case string:
		t, err := time.Parse(time.RFC3339Nano, d)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("malformed date %v", v))
}

func parseMillis(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("$numberLong has type %T", v)
	}
}

// Decode copies a parsed document into out, typically a pointer to a
// struct. Dates and ObjectIDs land in time.Time and ObjectID fields.
func Decode(doc any, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "re-encode document")
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, fmt.Sprintf("decode into %T", out))
	}
	return nil
}

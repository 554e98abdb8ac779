// Package payload models the loosely-typed JSON-like documents returned by a
// remote origin as a small tagged union.
//
// A Value is one of: null, bool, number, string, array or object. The zero
// Value is null. Values are immutable once built; accessors never expose the
// internal slices or maps for mutation.
//
// Numbers parsed from integer literals that fit in an int64 are kept exact,
// so identifiers above 2^53 survive a trip through the cache. Strings are
// always valid UTF-8.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type Value struct {
	kind  Kind
	b     bool
	n     float64
	i     int64
	isInt bool // n == float64(i) and i is authoritative
	s     string
	arr   []Value
	obj   map[string]Value
}

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(n float64) Value  { return Value{kind: KindNumber, n: n} }
func Int(i int64) Value       { return Value{kind: KindNumber, n: float64(i), i: i, isInt: true} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: append([]Value(nil), vs...)} }

// String builds a string value. Invalid UTF-8 sequences are replaced with
// U+FFFD so every codec hands back the same text it was given.
func String(s string) Value {
	return Value{kind: KindString, s: strings.ToValidUTF8(s, "\uFFFD")}
}
func Object(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// FromAny converts a native Go value into a Value. It accepts the shapes
// produced by encoding/json, msgpack and cbor decoders into interface{}.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case []byte:
		return String(string(x)), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("payload: number %q: %w", x, err)
		}
		return Number(f), nil
	case []Value:
		return Array(x...), nil
	case map[string]Value:
		return Object(x), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Value{kind: KindArray, arr: out}, nil
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = ev
		}
		return Value{kind: KindObject, obj: out}, nil
	case map[any]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("payload: non-string object key %T", k)
			}
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[ks] = ev
		}
		return Value{kind: KindObject, obj: out}, nil
	default:
		return Value{}, fmt.Errorf("payload: unsupported type %T", v)
	}
}

// fromUint keeps x exact when it fits in an int64.
func fromUint(x uint64) Value {
	if x > math.MaxInt64 {
		return Number(float64(x))
	}
	return Int(int64(x))
}

// MustFromAny is like FromAny but panics on error. Handy for tests and fixtures.
func MustFromAny(v any) Value {
	out, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return out
}

var errTrailingData = errors.New("trailing data after document")

// Parse decodes a single JSON document. Integer literals are kept exact.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("payload: parse: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return Value{}, fmt.Errorf("payload: parse: %w", err)
	}
	return FromAny(raw)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool)  { return v.s, v.kind == KindString }

// AsInt returns the number as an int64 when it is an exact integer.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if v.isInt {
		return v.i, true
	}
	if v.n == math.Trunc(v.n) && v.n >= math.MinInt64 && v.n < math.MaxInt64 {
		return int64(v.n), true
	}
	return 0, false
}

// AsArray returns a copy of the array elements.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return append([]Value(nil), v.arr...), true
}

// AsObject returns a copy of the object members.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	cp := make(map[string]Value, len(v.obj))
	for k, e := range v.obj {
		cp[k] = e
	}
	return cp, true
}

// Get returns the member stored under key when v is an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	e, ok := v.obj[key]
	return e, ok
}

// Index returns the i-th element when v is an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Len is the number of elements (array), members (object) or bytes (string).
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

// Any returns the native Go form: nil, bool, int64 or float64, string, []any
// or map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if v.isInt {
			return v.i
		}
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Any()
		}
		return out
	default:
		return nil
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		if v.isInt && o.isInt {
			return v.i == o.i
		}
		return v.n == o.n || (math.IsNaN(v.n) && math.IsNaN(o.n))
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, e := range v.obj {
			oe, ok := o.obj[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v as compact JSON with object keys sorted.
func (v Value) String() string {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.String()
}

func (v Value) writeJSON(buf *bytes.Buffer) {
	switch v.kind {
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.writeJSON(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			v.obj[k].writeJSON(buf)
		}
		buf.WriteByte('}')
	default:
		b, err := json.Marshal(v.Any())
		if err != nil {
			buf.WriteString("null")
			return
		}
		buf.Write(b)
	}
}

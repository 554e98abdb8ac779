// Package codec turns cached values into the bytes a provider stores.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/fetchcache/payload"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

// Msgpack serializes with vmihailenco/msgpack/v5. The zero value is ready to use.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

// ForName returns the payload codec registered under name:
// "json" (default for ""), "cbor", "msgpack" or "proto".
func ForName(name string) (Codec[payload.Value], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON[payload.Value]{}, nil
	case "cbor":
		c, err := NewCBOR[payload.Value](false)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "msgpack":
		return Msgpack[payload.Value]{}, nil
	case "proto", "protobuf":
		return ValueProto{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

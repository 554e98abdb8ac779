package payload

import (
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	_ json.Marshaler        = Value{}
	_ json.Unmarshaler      = (*Value)(nil)
	_ cbor.Marshaler        = Value{}
	_ cbor.Unmarshaler      = (*Value)(nil)
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// Object members are encoded in canonical order so equal documents produce
// equal bytes regardless of map iteration order.
var cborEnc = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// cbor decodes maps as map[interface{}]interface{} unless told otherwise.
var cborDec = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	out, err := Parse(b)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (v Value) MarshalCBOR() ([]byte, error) {
	return cborEnc.Marshal(v.Any())
}

func (v *Value) UnmarshalCBOR(b []byte) error {
	var raw any
	if err := cborDec.Unmarshal(b, &raw); err != nil {
		return err
	}
	out, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(v.Any())
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	out, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// ToProto converts v into a google.protobuf.Value. Protobuf numbers are
// doubles, so integers beyond 2^53 lose precision; pick another codec for
// documents that carry such identifiers.
func (v Value) ToProto() (*structpb.Value, error) {
	return structpb.NewValue(v.Any())
}

// FromProto converts a google.protobuf.Value. A nil message is null.
func FromProto(pv *structpb.Value) (Value, error) {
	if pv == nil {
		return Null(), nil
	}
	return FromAny(pv.AsInterface())
}

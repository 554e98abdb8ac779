package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/fetchcache/payload"
)

type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *mypb.User { return &mypb.User{} }
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// ValueProto stores payloads as google.protobuf.Value messages.
type ValueProto struct{}

var valueMsg = NewProtobuf(func() *structpb.Value { return &structpb.Value{} })

func (ValueProto) Encode(v payload.Value) ([]byte, error) {
	pv, err := v.ToProto()
	if err != nil {
		return nil, err
	}
	return valueMsg.Encode(pv)
}

func (ValueProto) Decode(b []byte) (payload.Value, error) {
	pv, err := valueMsg.Decode(b)
	if err != nil {
		return payload.Value{}, err
	}
	return payload.FromProto(pv)
}

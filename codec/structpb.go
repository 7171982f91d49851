package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Structpb stores session data as a google.protobuf.Struct.
// Only JSON-like values are accepted (nil, bool, numbers, string, []byte,
// []any, map[string]any); numbers decode as float64.
type Structpb struct{}

var _ Codec[map[string]any] = Structpb{}

var deterministic = proto.MarshalOptions{Deterministic: true}

func (Structpb) Encode(m map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return deterministic.Marshal(s)
}

func (Structpb) Decode(b []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}

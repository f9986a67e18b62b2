package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Message is a tuple in transit: the output stream and its values.
type Message struct {
	Stream string `json:"stream"`
	Values []any  `json:"values"`
}

// Codec encodes tuples for a process boundary. Decoded numbers come back
// as float64 and lists as []any regardless of codec.
type Codec interface {
	Name() string
	Encode(Message) ([]byte, error)
	Decode([]byte) (Message, error)
}

// ErrUnknownCodec is returned by CodecByName.
var ErrUnknownCodec = errors.New("unknown codec")

// CodecByName returns the codec registered under name. "none" returns a
// nil Codec, meaning tuples stay in process.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json":
		return JSONCodec{}, nil
	case "proto":
		return StructCodec{}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// JSONCodec frames tuples as one JSON object each.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("json encode %s tuple: %w", m.Stream, err)
	}
	return b, nil
}

func (JSONCodec) Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	return m, nil
}

// StructCodec carries tuples as a protobuf Struct.
type StructCodec struct{}

func (StructCodec) Name() string { return "proto" }

func (StructCodec) Encode(m Message) ([]byte, error) {
	values, err := generic(m.Values)
	if err != nil {
		return nil, fmt.Errorf("proto encode %s tuple: %w", m.Stream, err)
	}
	s, err := structpb.NewStruct(map[string]any{
		"stream": m.Stream,
		"values": values,
	})
	if err != nil {
		return nil, fmt.Errorf("proto encode %s tuple: %w", m.Stream, err)
	}
	return proto.Marshal(s)
}

func (StructCodec) Decode(b []byte) (Message, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return Message{}, fmt.Errorf("%w: proto: %v", ErrDecode, err)
	}
	fields := s.AsMap()
	stream, ok := fields["stream"].(string)
	if !ok {
		return Message{}, fmt.Errorf("%w: proto tuple has no stream", ErrDecode)
	}
	values, _ := fields["values"].([]any)
	return Message{Stream: stream, Values: values}, nil
}

// generic rewrites typed slices into []any so structpb can represent them.
func generic(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, float64, float32, int, int32, int64, uint32, uint64:
		return x, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			g, err := generic(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			g, err := generic(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = g
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			g, err := generic(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case []int:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported wire value %T", v)
	}
}

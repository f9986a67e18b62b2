package wire

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hillas.stream/internal/units"
)

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = CodecByName("proto")
	require.NoError(t, err)
	assert.Equal(t, "proto", c.Name())

	c, err = CodecByName("none")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = CodecByName("xml")
	assert.True(t, errors.Is(err, ErrUnknownCodec))
}

func TestCodecs_ReconstructionTuple(t *testing.T) {
	result := SerializeMapping(map[string]any{
		"alt":      units.Degrees(20),
		"tel_ids":  []int{1, 4},
		"is_valid": true,
		"uncertainty": map[string]any{
			"alt":  math.NaN(),
			"core": units.Metres(2.5),
		},
	})
	// Every codec hands numbers back as float64 and lists as []any.
	want := Message{
		Stream: "default",
		Values: []any{map[string]any{
			"alt":      map[string]any{ValueKey: 20.0, UnitKey: "deg"},
			"tel_ids":  []any{1.0, 4.0},
			"is_valid": true,
			"uncertainty": map[string]any{
				"alt":  "NaN",
				"core": map[string]any{ValueKey: 2.5, UnitKey: "m"},
			},
		}},
	}

	for _, codec := range []Codec{JSONCodec{}, StructCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			b, err := codec.Encode(Message{Stream: "default", Values: []any{result}})
			require.NoError(t, err)
			got, err := codec.Decode(b)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("decoded tuple mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodecs_ErrorTuple(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, StructCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			b, err := codec.Encode(Message{Stream: "errors", Values: []any{int64(42)}})
			require.NoError(t, err)
			got, err := codec.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, Message{Stream: "errors", Values: []any{42.0}}, got)
		})
	}
}

func TestCodecs_DecodeGarbage(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, StructCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			_, err := codec.Decode([]byte{0xff, 0x00, 0x13})
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestStructCodec_UnsupportedValue(t *testing.T) {
	_, err := StructCodec{}.Encode(Message{Stream: "default", Values: []any{units.Metres(1)}})
	assert.Error(t, err)
}

func TestJSONCodec_RawNaNFails(t *testing.T) {
	_, err := JSONCodec{}.Encode(Message{Stream: "default", Values: []any{math.NaN()}})
	assert.Error(t, err)
}

package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/hillas.stream/internal/units"
)

// Envelope keys and the NaN marker.
const (
	ValueKey  = "__value__"
	UnitKey   = "__unit__"
	NaNMarker = "NaN"
)

// ErrDecode is wrapped by every deserialization failure.
var ErrDecode = errors.New("malformed wire value")

// policy selects how the shared encoder treats leaves that carry no unit.
type policy struct {
	wrapPlain bool // {"__value__": v} for unit-less leaves
	markNaN   bool // NaN floats become NaNMarker
	recurse   bool // descend into nested mappings
}

var (
	sequencePolicy = policy{wrapPlain: true}
	mappingPolicy  = policy{markNaN: true, recurse: true}
)

func (p policy) encode(v any) any {
	switch x := v.(type) {
	case units.Quantity:
		var mag any = x.Value
		if p.markNaN && math.IsNaN(x.Value) {
			mag = NaNMarker
		}
		return map[string]any{ValueKey: mag, UnitKey: x.Unit.Name()}
	case *units.Quantity:
		if x != nil {
			return p.encode(*x)
		}
	case map[string]any:
		if p.recurse {
			out := make(map[string]any, len(x))
			for k, e := range x {
				out[k] = p.encode(e)
			}
			return out
		}
	case float64:
		if p.markNaN && math.IsNaN(x) {
			return NaNMarker
		}
	case float32:
		if p.markNaN && math.IsNaN(float64(x)) {
			return NaNMarker
		}
	}
	if p.wrapPlain {
		return map[string]any{ValueKey: v}
	}
	return v
}

// SerializeQuantities encodes each value as an envelope. Quantities keep
// their unit name; other values are wrapped without one.
func SerializeQuantities(values []any) []map[string]any {
	out := make([]map[string]any, len(values))
	for i, v := range values {
		out[i] = sequencePolicy.encode(v).(map[string]any)
	}
	return out
}

// SerializeMapping encodes a mapping for transit. Quantities become
// envelopes, NaN floats become NaNMarker, nested mappings are encoded
// recursively and everything else is copied unchanged.
func SerializeMapping(m map[string]any) map[string]any {
	return mappingPolicy.encode(m).(map[string]any)
}

// DeserializeQuantities reverses SerializeQuantities. Envelopes with a unit
// become units.Quantity; bare envelopes yield their raw value.
func DeserializeQuantities(envelopes []map[string]any) ([]any, error) {
	out := make([]any, len(envelopes))
	for i, env := range envelopes {
		v, err := decodeEnvelope(env)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeEnvelope(env map[string]any) (any, error) {
	raw, ok := env[ValueKey]
	if !ok {
		return nil, fmt.Errorf("%w: envelope has no %s", ErrDecode, ValueKey)
	}
	name, hasUnit := env[UnitKey]
	if !hasUnit {
		return raw, nil
	}

	unitName, ok := name.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unit name is %T", ErrDecode, name)
	}
	u, err := units.Parse(unitName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	mag, err := toFloat(raw)
	if err != nil {
		return nil, err
	}
	return units.New(mag, u), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		if x == NaNMarker {
			return 0, fmt.Errorf("%w: NaN marker cannot be decoded to a magnitude", ErrDecode)
		}
	}
	return 0, fmt.Errorf("%w: magnitude is %T", ErrDecode, v)
}

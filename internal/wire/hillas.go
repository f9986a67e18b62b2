package wire

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/banshee-data/hillas.stream/internal/hillas"
)

// SerializeHillasDict encodes per-telescope moments keyed by the decimal
// telescope id.
func SerializeHillasDict(moments map[int]hillas.Moments) map[string]any {
	out := make(map[string]any, len(moments))
	for id, m := range moments {
		out[strconv.Itoa(id)] = SerializeQuantities(m.Sequence())
	}
	return out
}

// DeserializeHillasDict decodes a wire HillasDict. It accepts the value as
// the moment stage emits it and as a codec hands it back after transit.
func DeserializeHillasDict(v any) (map[int]hillas.Moments, error) {
	wireDict, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: hillas dict is %T", ErrDecode, v)
	}

	keys := make([]string, 0, len(wireDict))
	for k := range wireDict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[int]hillas.Moments, len(wireDict))
	for _, k := range keys {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: telescope id %q", ErrDecode, k)
		}
		envs, err := envelopeList(wireDict[k])
		if err != nil {
			return nil, fmt.Errorf("telescope %d: %w", id, err)
		}
		values, err := DeserializeQuantities(envs)
		if err != nil {
			return nil, fmt.Errorf("telescope %d: %w", id, err)
		}
		m, err := hillas.FromSequence(values)
		if err != nil {
			return nil, fmt.Errorf("%w: telescope %d: %v", ErrDecode, id, err)
		}
		out[id] = m
	}
	return out, nil
}

func envelopeList(v any) ([]map[string]any, error) {
	switch x := v.(type) {
	case []map[string]any:
		return x, nil
	case []any:
		out := make([]map[string]any, len(x))
		for i, e := range x {
			env, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrDecode, i, e)
			}
			out[i] = env
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: moment list is %T", ErrDecode, v)
	}
}

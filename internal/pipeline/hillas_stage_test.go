package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/wire"
)

func TestHillasStage_TwoTelescopes(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)

	out := process(s, goodEvent(7))
	require.Len(t, out, 1)
	assert.Equal(t, DefaultStream, out[0].Stream)
	require.Len(t, out[0].Values, 1)

	dict, ok := out[0].Values[0].(map[string]any)
	require.True(t, ok)
	assert.Len(t, dict, 2)
	assert.Contains(t, dict, "1")
	assert.Contains(t, dict, "2")

	moments, err := wire.DeserializeHillasDict(dict)
	require.NoError(t, err)
	assert.InDelta(t, 0, moments[1].Psi.Value, 1e-6)
	assert.InDelta(t, 60, moments[2].Psi.Value, 1e-6)
}

func TestHillasStage_EmitsSerializedMoments(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)

	out := process(s, goodEvent(8))
	require.Len(t, out, 1)
	dict := out[0].Values[0].(map[string]any)

	moments, err := wire.DeserializeHillasDict(dict)
	require.NoError(t, err)
	assert.Equal(t, wire.SerializeHillasDict(moments), dict)
}

func TestHillasStage_SinglePeak(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)
	img := flatImage()
	img[2] = 50

	out := process(s, RawEvent{EventID: 11, Data: map[string]TelescopeImage{"5": {ADCSums: img}}})
	require.Len(t, out, 1)
	require.Equal(t, DefaultStream, out[0].Stream)

	dict := out[0].Values[0].(map[string]any)
	envs := dict["5"].([]map[string]any)
	require.Len(t, envs, len(hillas.FieldNames))
	assert.Equal(t, map[string]any{wire.ValueKey: 50.0, wire.UnitKey: "pe"}, envs[0])
}

func TestHillasStage_OneOfThreeFails(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)
	ev := RawEvent{EventID: 42, Data: map[string]TelescopeImage{
		"1": {ADCSums: lineImage(0)},
		"2": {ADCSums: flatImage()},
		"3": {ADCSums: lineImage(120)},
	}}

	out := process(s, ev)
	require.Len(t, out, 1)
	assert.Equal(t, Tuple{Stream: ErrorStream, Values: []any{int64(42)}}, out[0])
}

func TestHillasStage_DoesNotMutateEvent(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)
	img := lineImage(0)
	img[0] = 3 // below the boundary threshold, cleaned away
	before := append([]float64(nil), img...)

	process(s, RawEvent{EventID: 1, Data: map[string]TelescopeImage{"1": {ADCSums: img}}})
	assert.Equal(t, before, img)
}

func TestHillasStage_MalformedInput(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)

	tests := []struct {
		name   string
		values []any
		want   any
	}{
		{"no telescopes", []any{RawEvent{EventID: 3}}, int64(3)},
		{"non-integer telescope id", []any{RawEvent{EventID: 4, Data: map[string]TelescopeImage{
			"LST-1": {ADCSums: lineImage(0)},
		}}}, int64(4)},
		{"unknown telescope", []any{RawEvent{EventID: 5, Data: map[string]TelescopeImage{
			"99": {ADCSums: lineImage(0)},
		}}}, int64(5)},
		{"short pixel array", []any{RawEvent{EventID: 6, Data: map[string]TelescopeImage{
			"1": {ADCSums: []float64{50, 50}},
		}}}, int64(6)},
		{"empty pixel array", []any{RawEvent{EventID: 7, Data: map[string]TelescopeImage{
			"1": {ADCSums: nil},
		}}}, int64(7)},
		{"pointer event", []any{&RawEvent{EventID: 8}}, int64(8)},
		{"no values", nil, UnknownEventID},
		{"wrong payload", []any{"event"}, UnknownEventID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := process(s, tt.values...)
			require.Len(t, out, 1)
			assert.Equal(t, Tuple{Stream: ErrorStream, Values: []any{tt.want}}, out[0])
		})
	}
}

func TestHillasStage_ExtractErrors(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)

	_, err := s.extract(RawEvent{EventID: 1, Data: map[string]TelescopeImage{"1": {ADCSums: flatImage()}}})
	assert.ErrorIs(t, err, hillas.ErrParameterization)
	assert.NotErrorIs(t, err, ErrMalformedInput)

	_, err = s.extract(RawEvent{EventID: 2, Data: map[string]TelescopeImage{"99": {ADCSums: flatImage()}}})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestHillasStage_GeometryCache(t *testing.T) {
	s := newTestHillas(t, testAsset(t), nil)
	process(s, goodEvent(1))
	process(s, goodEvent(2))

	st := s.CacheStats()
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, uint64(2), st.Misses)
	assert.Equal(t, uint64(2), st.Hits)
}

func TestHillasStage_LogCadence(t *testing.T) {
	var diag bytes.Buffer
	SetLogWriters(nil, &diag, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	conf := config.EmptyConfig()
	every := 3
	conf.LogEveryEvents = &every
	s := newTestHillas(t, testAsset(t), conf)
	diag.Reset()

	for i := int64(0); i < 7; i++ {
		process(s, goodEvent(i))
	}
	assert.Equal(t, 2, bytes.Count(diag.Bytes(), []byte("counted [")))
	assert.Contains(t, diag.String(), "counted [6] events [instance="+s.id+"]")
}

func TestHillasStage_ThousandsSeparator(t *testing.T) {
	assert.Equal(t, "1,000", countPrinter.Sprintf("%d", 1000))
}

func TestHillasStage_InitializeFailure(t *testing.T) {
	err := NewHillasStage().Initialize(nil, RuntimeContext{FS: fsutil.NewMemoryFileSystem()})
	assert.ErrorIs(t, err, instrument.ErrAssetLoad)
}

func TestHillasStage_OutputFields(t *testing.T) {
	s := NewHillasStage()
	assert.Equal(t, "hillas", s.Name())
	assert.Equal(t, []string{FieldHillas}, s.OutputFields()[DefaultStream])
	assert.Equal(t, []string{FieldErrors}, s.OutputFields()[ErrorStream])
}

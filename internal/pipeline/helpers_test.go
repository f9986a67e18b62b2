package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/instrument"
)

const (
	testRings    = 2 // 19 pixels per camera
	testTelCount = 6
)

// testAsset writes a synthetic array to the default asset path of an
// in-memory filesystem.
func testAsset(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	inst := instrument.SyntheticArray(testTelCount, testRings, 120)
	require.NoError(t, instrument.Save(fsys, config.DefaultInstrumentPath, inst))
	return fsys
}

func newTestHillas(t *testing.T, fsys fsutil.FileSystem, conf *config.PipelineConfig) *HillasStage {
	t.Helper()
	s := NewHillasStage()
	require.NoError(t, s.Initialize(conf, RuntimeContext{FS: fsys}))
	return s
}

func newTestReco(t *testing.T, fsys fsutil.FileSystem, newFitter func() ShowerFitter) *RecoStage {
	t.Helper()
	s := NewRecoStage()
	if newFitter != nil {
		s.NewFitter = newFitter
	}
	require.NoError(t, s.Initialize(nil, RuntimeContext{FS: fsys}))
	return s
}

// lineImage lights the pixels on a line through the camera centre at the
// given angle, brighter towards one end.
func lineImage(angleDeg float64) []float64 {
	x, y := instrument.HexCamera(testRings, 0.05)
	dx, dy := math.Cos(angleDeg*math.Pi/180), math.Sin(angleDeg*math.Pi/180)
	img := make([]float64, len(x))
	for i := range x {
		along := x[i]*dx + y[i]*dy
		across := -x[i]*dy + y[i]*dx
		if math.Abs(across) < 0.01 {
			img[i] = 40 + 200*(along+0.1)
		}
	}
	return img
}

// flatImage is below every threshold.
func flatImage() []float64 {
	img := make([]float64, 19)
	for i := range img {
		img[i] = 1
	}
	return img
}

func goodEvent(id int64) RawEvent {
	return RawEvent{EventID: id, Data: map[string]TelescopeImage{
		"1": {ADCSums: lineImage(0)},
		"2": {ADCSums: lineImage(60)},
	}}
}

func process(s Stage, values ...any) []Tuple {
	var c collector
	s.Process(Tuple{Stream: DefaultStream, Values: values}, &c)
	return c.tuples
}

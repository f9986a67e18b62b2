package hillas

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hillas.stream/internal/units"
)

const tol = 1e-9

func TestParameters_TwoPixels(t *testing.T) {
	// Equal charges at (-a, 0) and (a, 0): length a, width 0, psi 0.
	a := 0.1
	m, err := Parameters([]float64{-a, a}, []float64{0, 0}, []float64{20, 20})
	require.NoError(t, err)

	assert.InDelta(t, 40, m.Size.Value, tol)
	assert.Equal(t, units.PhotoElectron, m.Size.Unit)
	assert.InDelta(t, 0, m.CenX.Value, tol)
	assert.InDelta(t, a, m.Length.Value, tol)
	assert.InDelta(t, 0, m.Width.Value, tol)
	assert.InDelta(t, 0, m.Psi.Value, 1e-6)
	assert.InDelta(t, 0, m.Skewness, tol)
	assert.InDelta(t, 1, m.Kurtosis, tol)
}

func TestParameters_DiagonalImage(t *testing.T) {
	// Charges along the line y = x, offset from the camera centre.
	var x, y, q []float64
	for i := 0; i < 5; i++ {
		d := 0.2 + 0.05*float64(i)
		x = append(x, d)
		y = append(y, d)
		q = append(q, 10)
	}
	// A little spread perpendicular to the axis.
	x = append(x, 0.32, 0.28)
	y = append(y, 0.28, 0.32)
	q = append(q, 5, 5)

	m, err := Parameters(x, y, q)
	require.NoError(t, err)

	assert.InDelta(t, 45, m.Psi.Value, 1e-6)
	assert.InDelta(t, 45, m.Phi.Value, 1e-6)
	assert.Greater(t, m.Length.Value, m.Width.Value)
	assert.Greater(t, m.Width.Value, 0.0)
	// The major axis passes through the origin, so the miss distance vanishes.
	assert.InDelta(t, 0, m.Miss.Value, 1e-9)
	assert.InDelta(t, math.Hypot(m.CenX.Value, m.CenY.Value), m.R.Value, tol)
}

func TestParameters_SinglePixel(t *testing.T) {
	m, err := Parameters([]float64{0, 0.05}, []float64{0, 0}, []float64{50, 0})
	require.NoError(t, err)

	assert.InDelta(t, 50, m.Size.Value, tol)
	assert.Zero(t, m.Length.Value)
	assert.Zero(t, m.Width.Value)
	assert.Zero(t, m.Skewness, "zero-length images report zero skewness")
	assert.Zero(t, m.Kurtosis)
}

func TestParameters_Failures(t *testing.T) {
	tests := []struct {
		name    string
		x, y, q []float64
	}{
		{"empty image", []float64{0, 1}, []float64{0, 0}, []float64{0, 0}},
		{"negative total", []float64{0, 1}, []float64{0, 0}, []float64{-3, 1}},
		{"length mismatch", []float64{0, 1}, []float64{0, 0}, []float64{5}},
		{"non-finite charge", []float64{0, 1}, []float64{0, 0}, []float64{math.Inf(1), 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parameters(tt.x, tt.y, tt.q)
			if !errors.Is(err, ErrParameterization) {
				t.Errorf("error = %v, want ErrParameterization", err)
			}
		})
	}
}

func TestMoments_SequenceRoundTrip(t *testing.T) {
	m, err := Parameters([]float64{-0.1, 0, 0.1}, []float64{0, 0.02, 0}, []float64{12, 30, 12})
	require.NoError(t, err)

	seq := m.Sequence()
	require.Len(t, seq, len(FieldNames))
	_, isQuantity := seq[0].(units.Quantity)
	assert.True(t, isQuantity, "size travels as a quantity")
	_, isPlain := seq[len(seq)-1].(float64)
	assert.True(t, isPlain, "kurtosis travels as a bare number")

	back, err := FromSequence(seq)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestFromSequence_ConvertsUnits(t *testing.T) {
	m, err := Parameters([]float64{-0.1, 0.1}, []float64{0, 0}, []float64{10, 10})
	require.NoError(t, err)

	seq := m.Sequence()
	seq[3] = units.New(10, units.Centimetre) // length
	seq[7] = units.New(math.Pi/4, units.Radian)

	back, err := FromSequence(seq)
	require.NoError(t, err)
	assert.Equal(t, units.Metre, back.Length.Unit)
	assert.InDelta(t, 0.1, back.Length.Value, tol)
	assert.InDelta(t, 45, back.Psi.Value, 1e-9)
}

func TestFromSequence_Errors(t *testing.T) {
	m, _ := Parameters([]float64{-0.1, 0.1}, []float64{0, 0}, []float64{10, 10})

	short := m.Sequence()[:5]
	_, err := FromSequence(short)
	assert.Error(t, err)

	wrongType := m.Sequence()
	wrongType[0] = 42.0
	_, err = FromSequence(wrongType)
	assert.ErrorContains(t, err, "size")

	wrongUnit := m.Sequence()
	wrongUnit[1] = units.Degrees(3)
	_, err = FromSequence(wrongUnit)
	assert.ErrorIs(t, err, units.ErrIncompatibleUnits)

	plainAsQuantity := m.Sequence()
	plainAsQuantity[9] = units.Metres(1)
	_, err = FromSequence(plainAsQuantity)
	assert.ErrorContains(t, err, "skewness")
}

package reco

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/units"
)

const (
	pointAz = 0.0  // deg
	pointEl = 20.0 // deg
)

// simulate projects a straight shower axis into every camera of inst and
// returns the resulting moments.
func simulate(t *testing.T, inst *instrument.Description, alt, az, coreX, coreY float64) map[int]hillas.Moments {
	t.Helper()
	shower := Shower{Alt: units.Degrees(alt), Az: units.Degrees(az), CoreX: coreX, CoreY: coreY}

	out := make(map[int]hillas.Moments)
	for _, id := range inst.TelescopeIDs() {
		tel, err := inst.Telescope(id)
		require.NoError(t, err)
		tr, err := shower.Trace(tel, units.Degrees(pointAz), units.Degrees(pointEl))
		require.NoError(t, err)

		out[id] = hillas.Moments{
			Size:   units.New(100*float64(id), units.PhotoElectron),
			CenX:   units.Metres((tr.X1 + tr.X2) / 2),
			CenY:   units.Metres((tr.Y1 + tr.Y2) / 2),
			Length: units.Metres(math.Hypot(tr.X2-tr.X1, tr.Y2-tr.Y1) / 2),
			Width:  units.Metres(0.01),
			Psi:    units.Degrees(math.Atan2(tr.Y2-tr.Y1, tr.X2-tr.X1) * 180 / math.Pi),
		}
	}
	return out
}

func pointing(inst *instrument.Description) (az, el map[int]units.Quantity) {
	az = make(map[int]units.Quantity)
	el = make(map[int]units.Quantity)
	for _, id := range inst.TelescopeIDs() {
		az[id] = units.Degrees(pointAz)
		el[id] = units.Degrees(pointEl)
	}
	return az, el
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	var fe *FitError
	require.True(t, errors.As(err, &fe), "error %v is not a FitError", err)
	assert.Equal(t, want, fe.Kind)
}

func TestPredict_RecoversAxis(t *testing.T) {
	inst := instrument.SyntheticArray(4, 2, 120)
	moments := simulate(t, inst, 21, 0.5, 30, -20)
	az, el := pointing(inst)

	res, err := NewFitter().Predict(moments, inst, az, el)
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.InDelta(t, 21, res.Alt.Value, 1e-6)
	assert.InDelta(t, 0.5, res.Az.Value, 1e-6)
	assert.Equal(t, units.Degree, res.Alt.Unit)
	assert.InDelta(t, 30, res.CoreX.Value, 1e-4)
	assert.InDelta(t, -20, res.CoreY.Value, 1e-4)
	assert.Equal(t, units.Metre, res.CoreX.Unit)
	assert.InDelta(t, 0, res.CoreUncertainty.Value, 1e-4)
	assert.InDelta(t, 0, res.GoodnessOfFit, 1e-9)
	assert.True(t, res.HMax.IsNaN())
	assert.Equal(t, []int{1, 2, 3, 4}, res.TelIDs)
	assert.InDelta(t, 250, res.AverageSize, 1e-9)
}

func TestPredict_TwoTelescopes(t *testing.T) {
	inst := instrument.SyntheticArray(2, 2, 150)
	moments := simulate(t, inst, 19.5, -1, -40, 60)
	az, el := pointing(inst)

	res, err := NewFitter().Predict(moments, inst, az, el)
	require.NoError(t, err)
	assert.InDelta(t, 19.5, res.Alt.Value, 1e-6)
	assert.InDelta(t, -1, res.Az.Value, 1e-6)
	assert.Equal(t, []int{1, 2}, res.TelIDs)
}

func TestPredict_FitterIsReusable(t *testing.T) {
	inst := instrument.SyntheticArray(4, 2, 120)
	az, el := pointing(inst)
	f := NewFitter()

	first, err := f.Predict(simulate(t, inst, 21, 0.5, 30, -20), inst, az, el)
	require.NoError(t, err)
	second, err := f.Predict(simulate(t, inst, 20.5, -0.5, -10, 5), inst, az, el)
	require.NoError(t, err)

	assert.InDelta(t, 21, first.Alt.Value, 1e-6)
	assert.InDelta(t, 20.5, second.Alt.Value, 1e-6)
	assert.InDelta(t, -10, second.CoreX.Value, 1e-4)
}

func TestPredict_Failures(t *testing.T) {
	inst := instrument.SyntheticArray(4, 2, 120)
	az, el := pointing(inst)
	good := simulate(t, inst, 21, 0.5, 30, -20)

	t.Run("single telescope", func(t *testing.T) {
		_, err := NewFitter().Predict(map[int]hillas.Moments{1: good[1]}, inst, az, el)
		requireKind(t, err, KindTooFewTelescopes)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewFitter().Predict(nil, inst, az, el)
		requireKind(t, err, KindTooFewTelescopes)
	})

	t.Run("unknown telescope", func(t *testing.T) {
		m := map[int]hillas.Moments{1: good[1], 99: good[2]}
		_, err := NewFitter().Predict(m, inst, az, el)
		requireKind(t, err, KindInvalidGeometry)
		assert.ErrorIs(t, err, instrument.ErrUnknownTelescope)
	})

	t.Run("missing pointing", func(t *testing.T) {
		_, err := NewFitter().Predict(good, inst, map[int]units.Quantity{}, el)
		requireKind(t, err, KindInvalidGeometry)
	})

	t.Run("pointing in metres", func(t *testing.T) {
		bad := map[int]units.Quantity{}
		for id := range az {
			bad[id] = units.Metres(1)
		}
		_, err := NewFitter().Predict(good, inst, bad, el)
		requireKind(t, err, KindInvalidGeometry)
	})

	t.Run("nil instrument", func(t *testing.T) {
		_, err := NewFitter().Predict(good, nil, az, el)
		requireKind(t, err, KindInvalidGeometry)
	})

	t.Run("coplanar images", func(t *testing.T) {
		// Two telescopes at the same spot see the same plane.
		same := &instrument.Description{Name: "twin", Telescopes: map[int]instrument.Telescope{}}
		for _, id := range []int{1, 2} {
			tel := inst.Telescopes[1]
			tel.ID = id
			same.Telescopes[id] = tel
		}
		m := map[int]hillas.Moments{1: good[1], 2: good[1]}
		_, err := NewFitter().Predict(m, same, az, el)
		requireKind(t, err, KindNoConvergence)
	})
}

func TestFitError_Message(t *testing.T) {
	err := fitErrorf(KindNoConvergence, "planes %d", 2)
	assert.Equal(t, "shower fit failed: no_convergence: planes 2", err.Error())
	assert.Equal(t, "shower fit failed: too_few_telescopes", (&FitError{Kind: KindTooFewTelescopes}).Error())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestResult_AsMap(t *testing.T) {
	r := &Result{
		Alt:             units.Degrees(20),
		Az:              units.Degrees(1),
		CoreX:           units.Metres(3),
		CoreY:           units.Metres(4),
		CoreUncertainty: units.Metres(0.5),
		HMax:            units.Metres(math.NaN()),
		IsValid:         true,
		TelIDs:          []int{1, 2},
		AverageSize:     150,
		GoodnessOfFit:   0.01,
	}
	m := r.AsMap()

	assert.Equal(t, units.Degrees(20), m["alt"])
	assert.Equal(t, units.Metres(3), m["core_x"])
	assert.Equal(t, true, m["is_valid"])
	assert.Equal(t, []int{1, 2}, m["tel_ids"])
	assert.True(t, m["h_max"].(units.Quantity).IsNaN())

	unc, ok := m["uncertainty"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, units.Metres(0.5), unc["core"])
	assert.True(t, math.IsNaN(unc["alt"].(float64)))
	assert.True(t, math.IsNaN(unc["h_max"].(float64)))

	// The map owns its own tel_ids slice.
	m["tel_ids"].([]int)[0] = 7
	assert.Equal(t, 1, r.TelIDs[0])
}

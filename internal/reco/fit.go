package reco

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/units"
)

const (
	// axisStep is the camera-plane distance used to pick a second point on
	// each image axis.
	axisStep = 0.1 // metres
	// minPlaneSeparation is the smallest normalised cross-product magnitude
	// accepted between plane normals.
	minPlaneSeparation = 1e-6
	// maxCoreCondition bounds the condition number of the core normal
	// equations.
	maxCoreCondition = 1e8
)

// Fitter reconstructs showers from Hillas moments. It keeps scratch
// buffers between calls: reuse it sequentially, never concurrently.
type Fitter struct {
	MinTelescopes int

	planes []plane
}

type plane struct {
	telID    int
	normal   r3.Vec
	pointing r3.Vec
	position r3.Vec
	weight   float64
}

// NewFitter returns a Fitter requiring at least two telescopes.
func NewFitter() *Fitter {
	return &Fitter{MinTelescopes: 2}
}

// Predict fits the shower axis. azimuth and elevation give each
// telescope's pointing. Every failure is a *FitError.
func (f *Fitter) Predict(
	moments map[int]hillas.Moments,
	inst *instrument.Description,
	azimuth, elevation map[int]units.Quantity,
) (*Result, error) {
	minTel := max(f.MinTelescopes, 2)
	if len(moments) < minTel {
		return nil, fitErrorf(KindTooFewTelescopes, "%d telescopes, need %d", len(moments), minTel)
	}
	if inst == nil {
		return nil, fitErrorf(KindInvalidGeometry, "no instrument description")
	}

	ids := make([]int, 0, len(moments))
	for id := range moments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	f.planes = f.planes[:0]
	sizes := make([]float64, 0, len(ids))
	for _, id := range ids {
		p, err := imagePlane(id, moments[id], inst, azimuth, elevation)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, moments[id].Size.Value)
		if p == nil {
			continue
		}
		f.planes = append(f.planes, *p)
	}
	if len(f.planes) < minTel {
		return nil, fitErrorf(KindTooFewTelescopes, "%d usable image planes, need %d", len(f.planes), minTel)
	}

	dir, err := intersectPlanes(f.planes)
	if err != nil {
		return nil, err
	}
	coreX, coreY, rms, err := intersectTraces(f.planes)
	if err != nil {
		return nil, err
	}

	offAxis := make([]float64, len(f.planes))
	weights := make([]float64, len(f.planes))
	for i, p := range f.planes {
		offAxis[i] = math.Abs(r3.Dot(p.normal, dir))
		weights[i] = p.weight
	}

	return &Result{
		Alt:             units.Degrees(math.Asin(dir.Z) * 180 / math.Pi),
		Az:              units.Degrees(math.Atan2(dir.Y, dir.X) * 180 / math.Pi),
		CoreX:           units.Metres(coreX),
		CoreY:           units.Metres(coreY),
		CoreUncertainty: units.Metres(rms),
		HMax:            units.Metres(math.NaN()),
		IsValid:         true,
		TelIDs:          ids,
		AverageSize:     stat.Mean(sizes, nil),
		GoodnessOfFit:   stat.Mean(offAxis, weights),
	}, nil
}

// imagePlane returns the plane spanned by the telescope's image axis, or
// nil if the image axis is degenerate.
func imagePlane(id int, m hillas.Moments, inst *instrument.Description, azimuth, elevation map[int]units.Quantity) (*plane, error) {
	tel, err := inst.Telescope(id)
	if err != nil {
		return nil, &FitError{Kind: KindInvalidGeometry, Err: err}
	}
	if tel.FocalLength <= 0 {
		return nil, fitErrorf(KindInvalidGeometry, "telescope %d: focal length %g", id, tel.FocalLength)
	}
	az, okAz := azimuth[id]
	el, okEl := elevation[id]
	if !okAz || !okEl {
		return nil, fitErrorf(KindInvalidGeometry, "telescope %d: no pointing", id)
	}
	azRad, elRad := az.Radians(), el.Radians()
	if math.IsNaN(azRad) || math.IsNaN(elRad) {
		return nil, fitErrorf(KindInvalidGeometry, "telescope %d: pointing is not an angle", id)
	}

	cenX, cenY := m.CenX.MustTo(units.Metre).Value, m.CenY.MustTo(units.Metre).Value
	psi := m.Psi.Radians()

	frame := newCameraFrame(azRad, elRad)
	p1 := frame.toSky(cenX, cenY, tel.FocalLength)
	p2 := frame.toSky(cenX+axisStep*math.Cos(psi), cenY+axisStep*math.Sin(psi), tel.FocalLength)

	n := r3.Cross(p1, p2)
	if r3.Norm(n) < minPlaneSeparation {
		return nil, nil
	}
	return &plane{
		telID:    id,
		normal:   r3.Unit(n),
		pointing: frame.pointing,
		position: r3.Vec{X: tel.Position[0], Y: tel.Position[1], Z: tel.Position[2]},
		weight:   m.Size.Value,
	}, nil
}

// intersectPlanes returns the unit shower direction from every pair of
// plane normals, oriented towards the telescopes' pointing.
func intersectPlanes(planes []plane) (r3.Vec, error) {
	var sum r3.Vec
	var totalWeight float64
	for i := 0; i < len(planes); i++ {
		for j := i + 1; j < len(planes); j++ {
			c := r3.Cross(planes[i].normal, planes[j].normal)
			if r3.Dot(c, planes[i].pointing) < 0 {
				c = r3.Scale(-1, c)
			}
			w := planes[i].weight * planes[j].weight
			sum = r3.Add(sum, r3.Scale(w, c))
			totalWeight += w
		}
	}
	if totalWeight <= 0 || r3.Norm(sum)/totalWeight < minPlaneSeparation {
		return r3.Vec{}, fitErrorf(KindNoConvergence, "image planes are parallel")
	}
	return r3.Unit(sum), nil
}

// intersectTraces solves for the ground point closest, in the weighted
// least-squares sense, to every plane's trace on the ground.
func intersectTraces(planes []plane) (x, y, rms float64, err error) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewVecDense(2, nil)
	type trace struct{ ax, ay, c, w float64 }
	traces := make([]trace, 0, len(planes))

	for _, p := range planes {
		norm := math.Hypot(p.normal.X, p.normal.Y)
		if norm < minPlaneSeparation {
			continue
		}
		t := trace{
			ax: p.normal.X / norm,
			ay: p.normal.Y / norm,
			c:  r3.Dot(p.normal, p.position) / norm,
			w:  p.weight,
		}
		traces = append(traces, t)
		a.Set(0, 0, a.At(0, 0)+t.w*t.ax*t.ax)
		a.Set(0, 1, a.At(0, 1)+t.w*t.ax*t.ay)
		a.Set(1, 0, a.At(1, 0)+t.w*t.ay*t.ax)
		a.Set(1, 1, a.At(1, 1)+t.w*t.ay*t.ay)
		b.SetVec(0, b.AtVec(0)+t.w*t.ax*t.c)
		b.SetVec(1, b.AtVec(1)+t.w*t.ay*t.c)
	}
	if len(traces) < 2 {
		return 0, 0, 0, fitErrorf(KindNoConvergence, "%d ground traces", len(traces))
	}
	if cond := mat.Cond(a, 2); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > maxCoreCondition {
		return 0, 0, 0, fitErrorf(KindNoConvergence, "ground traces are parallel (condition %g)", cond)
	}

	var core mat.VecDense
	if err := core.SolveVec(a, b); err != nil {
		return 0, 0, 0, fitErrorf(KindNoConvergence, "core solve: %v", err)
	}
	x, y = core.AtVec(0), core.AtVec(1)

	residuals := make([]float64, len(traces))
	weights := make([]float64, len(traces))
	for i, t := range traces {
		d := t.ax*x + t.ay*y - t.c
		residuals[i] = d * d
		weights[i] = t.w
	}
	return x, y, math.Sqrt(stat.Mean(residuals, weights)), nil
}

package reco

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/units"
)

// Distances along the axis, from the core, bounding the emitting part of
// a synthetic shower. Metres.
const (
	traceNear = 6000.0
	traceFar  = 14000.0
)

// Shower is a straight shower axis.
type Shower struct {
	Alt, Az      units.Quantity
	CoreX, CoreY float64 // metres, ground frame
}

// Trace is the image of a shower axis on one camera plane, in metres.
type Trace struct {
	X1, Y1, X2, Y2 float64
}

// Trace projects the emitting segment of the axis into the camera of tel
// pointed at (az, el).
func (s Shower) Trace(tel instrument.Telescope, az, el units.Quantity) (Trace, error) {
	alt, saz := s.Alt.Radians(), s.Az.Radians()
	paz, pel := az.Radians(), el.Radians()
	if math.IsNaN(alt) || math.IsNaN(saz) || math.IsNaN(paz) || math.IsNaN(pel) {
		return Trace{}, errors.New("shower and pointing must be angles")
	}

	axis := r3.Vec{
		X: math.Cos(alt) * math.Cos(saz),
		Y: math.Cos(alt) * math.Sin(saz),
		Z: math.Sin(alt),
	}
	core := r3.Vec{X: s.CoreX, Y: s.CoreY}
	pos := r3.Vec{X: tel.Position[0], Y: tel.Position[1], Z: tel.Position[2]}
	frame := newCameraFrame(paz, pel)

	near := r3.Add(core, r3.Scale(traceNear, axis))
	far := r3.Add(core, r3.Scale(traceFar, axis))
	x1, y1 := frame.toCamera(r3.Unit(r3.Sub(near, pos)), tel.FocalLength)
	x2, y2 := frame.toCamera(r3.Unit(r3.Sub(far, pos)), tel.FocalLength)
	return Trace{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

// Distance returns the distance from (x, y) to the trace segment.
func (t Trace) Distance(x, y float64) float64 {
	dx, dy := t.X2-t.X1, t.Y2-t.Y1
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-t.X1, y-t.Y1)
	}
	u := ((x-t.X1)*dx + (y-t.Y1)*dy) / l2
	u = math.Max(0, math.Min(1, u))
	return math.Hypot(x-(t.X1+u*dx), y-(t.Y1+u*dy))
}

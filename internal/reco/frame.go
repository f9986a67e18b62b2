package reco

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// cameraFrame maps focal-plane coordinates to sky directions for a
// telescope pointing at (az, el). ex and ey span the focal plane.
type cameraFrame struct {
	pointing r3.Vec
	ex, ey   r3.Vec
}

func newCameraFrame(az, el float64) cameraFrame {
	d := r3.Vec{
		X: math.Cos(el) * math.Cos(az),
		Y: math.Cos(el) * math.Sin(az),
		Z: math.Sin(el),
	}
	ex := r3.Vec{X: -math.Sin(az), Y: math.Cos(az)}
	return cameraFrame{pointing: d, ex: ex, ey: r3.Cross(d, ex)}
}

// toSky returns the unit direction seen at camera position (x, y).
func (f cameraFrame) toSky(x, y, focalLength float64) r3.Vec {
	v := r3.Add(r3.Scale(focalLength, f.pointing), r3.Add(r3.Scale(x, f.ex), r3.Scale(y, f.ey)))
	return r3.Unit(v)
}


// toCamera inverts toSky for directions in front of the camera.
func (f cameraFrame) toCamera(dir r3.Vec, focalLength float64) (x, y float64) {
	depth := r3.Dot(dir, f.pointing)
	return focalLength * r3.Dot(dir, f.ex) / depth, focalLength * r3.Dot(dir, f.ey) / depth
}

package instrument

import (
	"fmt"
	"math"
)

// HexCamera returns pixel centres of a hexagonal camera with the given
// number of rings around a central pixel. Pixel 0 is the centre.
func HexCamera(rings int, spacing float64) (x, y []float64) {
	x = append(x, 0)
	y = append(y, 0)
	for q := -rings; q <= rings; q++ {
		lo := max(-rings, -q-rings)
		hi := min(rings, -q+rings)
		for r := lo; r <= hi; r++ {
			if q == 0 && r == 0 {
				continue
			}
			x = append(x, spacing*(float64(q)+float64(r)/2))
			y = append(y, spacing*float64(r)*math.Sqrt(3)/2)
		}
	}
	return x, y
}

// SyntheticArray builds an n-telescope array of identical hexagonal
// cameras laid out on a square grid with the given spacing in metres.
func SyntheticArray(n, rings int, gridSpacing float64) *Description {
	const (
		pixelSpacing = 0.05 // metres
		focalLength  = 16.0 // metres
	)
	side := int(math.Ceil(math.Sqrt(float64(n))))
	offset := float64(side-1) / 2

	d := &Description{
		Name:       fmt.Sprintf("synthetic-%dtel", n),
		Telescopes: make(map[int]Telescope, n),
	}
	for i := 0; i < n; i++ {
		id := i + 1
		px, py := HexCamera(rings, pixelSpacing)
		d.Telescopes[id] = Telescope{
			ID: id,
			Position: [3]float64{
				(float64(i%side) - offset) * gridSpacing,
				(float64(i/side) - offset) * gridSpacing,
				0,
			},
			FocalLength: focalLength,
			CameraName:  "HexCam",
			PixelX:      px,
			PixelY:      py,
		}
	}
	return d
}

package instrument

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Pixel shape labels reported by Guess.
const (
	PixelHexagonal = "hexagonal"
	PixelSquare    = "square"
)

// neighborSpacingFactor scales the minimum pixel spacing to the radius
// within which two pixels are considered adjacent.
const neighborSpacingFactor = 1.4

// CameraGeometry is the inferred spatial layout of one camera.
type CameraGeometry struct {
	TelID       int
	PixX        []float64 // metres
	PixY        []float64 // metres
	PixArea     float64   // square metres, identical for every pixel
	PixType     string
	FocalLength float64 // metres
	Neighbors   [][]int
}

// NumPixels returns the number of pixels in the camera.
func (g *CameraGeometry) NumPixels() int { return len(g.PixX) }

// NearestPixel returns the index of the pixel closest to (x, y).
func (g *CameraGeometry) NearestPixel(x, y float64) int {
	best, bestD := -1, math.Inf(1)
	for i := range g.PixX {
		d := math.Hypot(g.PixX[i]-x, g.PixY[i]-y)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Guess infers a CameraGeometry from raw pixel positions and the focal
// length. Neighbour lists come from the minimum pixel spacing; the pixel
// shape is hexagonal when some pixel has more than four neighbours.
func Guess(pixX, pixY []float64, focalLength float64) (*CameraGeometry, error) {
	n := len(pixX)
	if n == 0 || n != len(pixY) {
		return nil, fmt.Errorf("pixel position arrays have lengths %d and %d", len(pixX), len(pixY))
	}
	if focalLength <= 0 {
		return nil, fmt.Errorf("focal length must be positive, got %g", focalLength)
	}

	g := &CameraGeometry{
		PixX:        append([]float64(nil), pixX...),
		PixY:        append([]float64(nil), pixY...),
		FocalLength: focalLength,
		Neighbors:   make([][]int, n),
	}
	if n == 1 {
		g.PixType = PixelSquare
		return g, nil
	}

	nearest := make([]float64, n)
	for i := 0; i < n; i++ {
		nearest[i] = math.Inf(1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if d := math.Hypot(pixX[i]-pixX[j], pixY[i]-pixY[j]); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	spacing := floats.Min(nearest)
	if spacing <= 0 {
		return nil, errors.New("camera has coincident pixels")
	}

	radius := neighborSpacingFactor * spacing
	maxCount := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && math.Hypot(pixX[i]-pixX[j], pixY[i]-pixY[j]) < radius {
				g.Neighbors[i] = append(g.Neighbors[i], j)
			}
		}
		maxCount = max(maxCount, len(g.Neighbors[i]))
	}

	if maxCount > 4 {
		g.PixType = PixelHexagonal
		g.PixArea = math.Sqrt(3) / 2 * spacing * spacing
	} else {
		g.PixType = PixelSquare
		g.PixArea = spacing * spacing
	}
	return g, nil
}

// NeighborsWithin returns every pixel reachable from the seed pixels in at
// most order hops, excluding the seeds themselves.
func (g *CameraGeometry) NeighborsWithin(seeds []bool, order int) []bool {
	out := make([]bool, g.NumPixels())
	frontier := make([]int, 0)
	visited := make([]bool, g.NumPixels())
	for i, s := range seeds {
		if s {
			visited[i] = true
			frontier = append(frontier, i)
		}
	}
	for hop := 0; hop < order && len(frontier) > 0; hop++ {
		var next []int
		for _, p := range frontier {
			for _, nb := range g.Neighbors[p] {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				out[nb] = true
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return out
}

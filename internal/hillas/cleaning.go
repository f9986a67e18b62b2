package hillas

import (
	"errors"
	"fmt"

	"github.com/banshee-data/hillas.stream/internal/instrument"
)

// ErrImageShape is returned when an image does not match its camera.
var ErrImageShape = errors.New("image does not match camera geometry")

// CleaningParams configures tail-cuts cleaning.
type CleaningParams struct {
	PictureThreshold    float64
	BoundaryThreshold   float64
	NeighborOrder       int
	MinPictureNeighbors int
}

// DefaultCleaningParams returns the production thresholds.
func DefaultCleaningParams() CleaningParams {
	return CleaningParams{
		PictureThreshold:    10,
		BoundaryThreshold:   5,
		NeighborOrder:       1,
		MinPictureNeighbors: 0,
	}
}

// TailcutsClean returns a mask selecting picture pixels (charge at or above
// the picture threshold, with at least MinPictureNeighbors picture
// neighbours) plus boundary pixels (charge at or above the boundary
// threshold within NeighborOrder hops of a picture pixel).
func TailcutsClean(geom *instrument.CameraGeometry, image []float64, p CleaningParams) ([]bool, error) {
	if len(image) != geom.NumPixels() {
		return nil, fmt.Errorf("%w: %d charges for %d pixels", ErrImageShape, len(image), geom.NumPixels())
	}

	picture := make([]bool, len(image))
	for i, q := range image {
		picture[i] = q >= p.PictureThreshold
	}

	if p.MinPictureNeighbors > 0 {
		kept := make([]bool, len(image))
		for i, isPic := range picture {
			if !isPic {
				continue
			}
			n := 0
			for _, nb := range geom.Neighbors[i] {
				if picture[nb] {
					n++
				}
			}
			kept[i] = n >= p.MinPictureNeighbors
		}
		picture = kept
	}

	order := max(p.NeighborOrder, 1)
	near := geom.NeighborsWithin(picture, order)

	mask := make([]bool, len(image))
	for i := range image {
		mask[i] = picture[i] || (near[i] && image[i] >= p.BoundaryThreshold)
	}
	return mask, nil
}

// ApplyMask returns a copy of image with unselected pixels set to zero.
func ApplyMask(image []float64, mask []bool) []float64 {
	out := make([]float64, len(image))
	for i, q := range image {
		if i < len(mask) && mask[i] {
			out[i] = q
		}
	}
	return out
}

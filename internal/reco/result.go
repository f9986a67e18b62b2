package reco

import (
	"math"

	"github.com/banshee-data/hillas.stream/internal/units"
)

// Result is a reconstructed shower.
type Result struct {
	Alt             units.Quantity // deg
	Az              units.Quantity // deg
	CoreX           units.Quantity // m
	CoreY           units.Quantity // m
	CoreUncertainty units.Quantity // m, weighted RMS distance to the ground traces
	HMax            units.Quantity // m, not estimated by this fitter
	IsValid         bool
	TelIDs          []int
	AverageSize     float64 // pe
	GoodnessOfFit   float64 // weighted mean |sin| between the axis and each plane
}

// AsMap flattens the result into named fields, with uncertainties in a
// nested mapping. Quantities stay quantities; serialization happens later.
func (r *Result) AsMap() map[string]any {
	nan := math.NaN()
	return map[string]any{
		"alt":             r.Alt,
		"az":              r.Az,
		"core_x":          r.CoreX,
		"core_y":          r.CoreY,
		"h_max":           r.HMax,
		"is_valid":        r.IsValid,
		"tel_ids":         append([]int(nil), r.TelIDs...),
		"average_size":    r.AverageSize,
		"goodness_of_fit": r.GoodnessOfFit,
		"uncertainty": map[string]any{
			"alt":   nan,
			"az":    nan,
			"core":  r.CoreUncertainty,
			"h_max": nan,
		},
	}
}

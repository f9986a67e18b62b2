package hillas

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/hillas.stream/internal/units"
)

// ErrParameterization is returned when valid moments cannot be computed
// for an image.
var ErrParameterization = errors.New("could not compute hillas parameters")

// Parameters computes the Hillas moments of a cleaned image given pixel
// centres in metres. Zero-charge pixels contribute nothing.
func Parameters(pixX, pixY, image []float64) (Moments, error) {
	if len(pixX) != len(image) || len(pixY) != len(image) {
		return Moments{}, fmt.Errorf("%w: %d charges for %d/%d pixel positions",
			ErrParameterization, len(image), len(pixX), len(pixY))
	}

	size := floats.Sum(image)
	if !(size > 0) || math.IsInf(size, 0) {
		return Moments{}, fmt.Errorf("%w: image size %g", ErrParameterization, size)
	}

	meanX := stat.Mean(pixX, image)
	meanY := stat.Mean(pixY, image)

	var sxx, syy, sxy float64
	for i, q := range image {
		dx, dy := pixX[i]-meanX, pixY[i]-meanY
		sxx += q * dx * dx
		syy += q * dy * dy
		sxy += q * dx * dy
	}
	sxx /= size
	syy /= size
	sxy /= size

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy}), true); !ok {
		return Moments{}, fmt.Errorf("%w: covariance eigendecomposition failed", ErrParameterization)
	}
	values := eig.Values(nil) // ascending
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	length := math.Sqrt(math.Max(values[1], 0))
	width := math.Sqrt(math.Max(values[0], 0))

	psi := math.Atan2(vectors.At(1, 1), vectors.At(0, 1))
	if psi > math.Pi/2 {
		psi -= math.Pi
	} else if psi <= -math.Pi/2 {
		psi += math.Pi
	}

	r := math.Hypot(meanX, meanY)
	phi := math.Atan2(meanY, meanX)
	miss := math.Abs(r * math.Sin(phi-psi))

	var skewness, kurtosis float64
	if length > 0 {
		cosPsi, sinPsi := math.Cos(psi), math.Sin(psi)
		var m3, m4 float64
		for i, q := range image {
			l := (pixX[i]-meanX)*cosPsi + (pixY[i]-meanY)*sinPsi
			l2 := l * l
			m3 += q * l2 * l
			m4 += q * l2 * l2
		}
		skewness = m3 / size / math.Pow(length, 3)
		kurtosis = m4 / size / math.Pow(length, 4)
	}

	m := Moments{
		Size:     units.New(size, units.PhotoElectron),
		CenX:     units.Metres(meanX),
		CenY:     units.Metres(meanY),
		Length:   units.Metres(length),
		Width:    units.Metres(width),
		R:        units.Metres(r),
		Phi:      units.Degrees(phi * 180 / math.Pi),
		Psi:      units.Degrees(psi * 180 / math.Pi),
		Miss:     units.Metres(miss),
		Skewness: skewness,
		Kurtosis: kurtosis,
	}
	if err := m.checkFinite(); err != nil {
		return Moments{}, err
	}
	return m, nil
}

func (m Moments) checkFinite() error {
	for i, v := range m.Sequence() {
		var f float64
		switch x := v.(type) {
		case units.Quantity:
			f = x.Value
		case float64:
			f = x
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrParameterization, FieldNames[i])
		}
	}
	return nil
}

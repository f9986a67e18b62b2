package hillas

import (
	"fmt"

	"github.com/banshee-data/hillas.stream/internal/units"
)

// FieldNames lists the moment fields in wire order.
var FieldNames = []string{
	"size", "cen_x", "cen_y", "length", "width", "r", "phi", "psi", "miss", "skewness", "kurtosis",
}

// Moments are the Hillas shape parameters of one cleaned camera image.
// Skewness and Kurtosis are dimensionless and travel as bare numbers.
type Moments struct {
	Size     units.Quantity // pe
	CenX     units.Quantity // m
	CenY     units.Quantity // m
	Length   units.Quantity // m
	Width    units.Quantity // m
	R        units.Quantity // m
	Phi      units.Quantity // deg
	Psi      units.Quantity // deg
	Miss     units.Quantity // m
	Skewness float64
	Kurtosis float64
}

// Sequence returns the fields in wire order. Unit-bearing fields are
// units.Quantity values, the rest are float64.
func (m Moments) Sequence() []any {
	return []any{
		m.Size, m.CenX, m.CenY, m.Length, m.Width, m.R, m.Phi, m.Psi, m.Miss,
		m.Skewness, m.Kurtosis,
	}
}

// FromSequence rebuilds Moments from values in wire order. Quantities are
// converted to the canonical unit of their field.
func FromSequence(values []any) (Moments, error) {
	if len(values) != len(FieldNames) {
		return Moments{}, fmt.Errorf("moment sequence has %d fields, want %d", len(values), len(FieldNames))
	}

	var m Moments
	quantities := []struct {
		dst  *units.Quantity
		unit units.Unit
	}{
		{&m.Size, units.PhotoElectron},
		{&m.CenX, units.Metre},
		{&m.CenY, units.Metre},
		{&m.Length, units.Metre},
		{&m.Width, units.Metre},
		{&m.R, units.Metre},
		{&m.Phi, units.Degree},
		{&m.Psi, units.Degree},
		{&m.Miss, units.Metre},
	}
	for i, q := range quantities {
		v, ok := values[i].(units.Quantity)
		if !ok {
			return Moments{}, fmt.Errorf("field %s: want quantity, got %T", FieldNames[i], values[i])
		}
		c, err := v.To(q.unit)
		if err != nil {
			return Moments{}, fmt.Errorf("field %s: %w", FieldNames[i], err)
		}
		*q.dst = c
	}

	plain := []*float64{&m.Skewness, &m.Kurtosis}
	for j, dst := range plain {
		i := len(quantities) + j
		v, ok := values[i].(float64)
		if !ok {
			return Moments{}, fmt.Errorf("field %s: want number, got %T", FieldNames[i], values[i])
		}
		*dst = v
	}
	return m, nil
}

// Package units provides physical quantities and the unit names that
// travel with them on the wire.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Unit is a unit name as it appears in the "__unit__" field of a
// serialized quantity.
type Unit string

// Unit constants
const (
	Dimensionless Unit = ""
	Metre         Unit = "m"
	Centimetre    Unit = "cm"
	Millimetre    Unit = "mm"
	Degree        Unit = "deg"
	Radian        Unit = "rad"
	PhotoElectron Unit = "pe"
	Second        Unit = "s"
	Nanosecond    Unit = "ns"
)

var (
	// ErrUnknownUnit is returned when a unit name is not in the registry.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrIncompatibleUnits is returned when converting between different kinds.
	ErrIncompatibleUnits = errors.New("incompatible units")
)

type kind int

const (
	kindNone kind = iota
	kindLength
	kindAngle
	kindCharge
	kindTime
)

type unitInfo struct {
	kind  kind
	scale float64 // factor to the base unit of the kind
}

var registry = map[Unit]unitInfo{
	Dimensionless: {kindNone, 1},
	Metre:         {kindLength, 1},
	Centimetre:    {kindLength, 1e-2},
	Millimetre:    {kindLength, 1e-3},
	Degree:        {kindAngle, math.Pi / 180},
	Radian:        {kindAngle, 1},
	PhotoElectron: {kindCharge, 1},
	Second:        {kindTime, 1},
	Nanosecond:    {kindTime, 1e-9},
}

// ValidUnits contains all valid unit names
var ValidUnits = []Unit{Dimensionless, Metre, Centimetre, Millimetre, Degree, Radian, PhotoElectron, Second, Nanosecond}

// IsValid checks if the given unit name is in the registry
func IsValid(name string) bool {
	_, ok := registry[Unit(name)]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	names := make([]string, 0, len(ValidUnits))
	for _, u := range ValidUnits {
		if u == Dimensionless {
			names = append(names, `""`)
			continue
		}
		names = append(names, string(u))
	}
	return strings.Join(names, ", ")
}

// Parse resolves a wire unit name.
func Parse(name string) (Unit, error) {
	if !IsValid(name) {
		return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknownUnit, name, GetValidUnitsString())
	}
	return Unit(name), nil
}

// Name returns the wire name of the unit.
func (u Unit) Name() string { return string(u) }

// Quantity is a magnitude paired with a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// New returns a Quantity of v in unit u.
func New(v float64, u Unit) Quantity {
	return Quantity{Value: v, Unit: u}
}

// Metres is shorthand for New(v, Metre).
func Metres(v float64) Quantity { return New(v, Metre) }

// Degrees is shorthand for New(v, Degree).
func Degrees(v float64) Quantity { return New(v, Degree) }

// To converts q into unit u.
func (q Quantity) To(u Unit) (Quantity, error) {
	from, ok := registry[q.Unit]
	if !ok {
		return Quantity{}, fmt.Errorf("%w %q", ErrUnknownUnit, q.Unit)
	}
	to, ok := registry[u]
	if !ok {
		return Quantity{}, fmt.Errorf("%w %q", ErrUnknownUnit, u)
	}
	if from.kind != to.kind {
		return Quantity{}, fmt.Errorf("%w: %q to %q", ErrIncompatibleUnits, q.Unit, u)
	}
	if q.Unit == u {
		return q, nil
	}
	return Quantity{Value: q.Value * from.scale / to.scale, Unit: u}, nil
}

// MustTo is To for conversions known to be valid at compile time.
func (q Quantity) MustTo(u Unit) Quantity {
	c, err := q.To(u)
	if err != nil {
		panic(err)
	}
	return c
}

// Radians returns the angle in radians. Non-angle quantities return NaN.
func (q Quantity) Radians() float64 {
	c, err := q.To(Radian)
	if err != nil {
		return math.NaN()
	}
	return c.Value
}

// IsNaN reports whether the magnitude is NaN.
func (q Quantity) IsNaN() bool { return math.IsNaN(q.Value) }

func (q Quantity) String() string {
	if q.Unit == Dimensionless {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

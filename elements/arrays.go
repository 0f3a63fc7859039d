// Package elements owns the per-element data of a run: the named arrays
// that make up a population of oil elements, the spills that release them
// and the containers holding the certain and uncertain realizations.
package elements

import (
	"slices"

	"github.com/signalsfoundry/spill-simulator/model"
)

// Kind is the storage type of an array.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
)

// ArrayType declares a named per-element attribute. A Width of zero means
// one value per substance component.
type ArrayType struct {
	Name    string
	Kind    Kind
	Width   int
	Initial float64
}

// PerComponent reports whether the array is sized by the number of
// substance components.
func (t ArrayType) PerComponent() bool { return t.Width == 0 }

// Names of the standard arrays.
const (
	ArrayPositions          = "positions"
	ArrayNextPositions      = "next_positions"
	ArrayLastWaterPositions = "last_water_positions"
	ArrayStatusCodes        = "status_codes"
	ArraySpillNum           = "spill_num"
	ArrayID                 = "id"
	ArrayMass               = "mass"
	ArrayAge                = "age"
	ArrayFateStatus         = "fate_status"
	ArrayMassComponents     = "mass_components"
	ArrayInitMass           = "init_mass"
	ArrayDensity            = "density"
	ArrayArea               = "area"
	ArrayFracLost           = "frac_lost"
	ArrayFracWater          = "frac_water"
	ArrayEvapDecayConstant  = "evap_decay_constant"
	ArrayWindages           = "windages"
	ArrayFracCoverage       = "frac_coverage"
)

var (
	Positions          = ArrayType{Name: ArrayPositions, Kind: KindFloat, Width: 3}
	NextPositions      = ArrayType{Name: ArrayNextPositions, Kind: KindFloat, Width: 3}
	LastWaterPositions = ArrayType{Name: ArrayLastWaterPositions, Kind: KindFloat, Width: 3}
	StatusCodes        = ArrayType{Name: ArrayStatusCodes, Kind: KindInt, Width: 1, Initial: float64(model.StatusNotReleased)}
	SpillNum           = ArrayType{Name: ArraySpillNum, Kind: KindInt, Width: 1}
	ID                 = ArrayType{Name: ArrayID, Kind: KindInt, Width: 1}
	Mass               = ArrayType{Name: ArrayMass, Kind: KindFloat, Width: 1}
	Age                = ArrayType{Name: ArrayAge, Kind: KindFloat, Width: 1}
	FateStatus         = ArrayType{Name: ArrayFateStatus, Kind: KindInt, Width: 1}
	MassComponents     = ArrayType{Name: ArrayMassComponents, Kind: KindFloat}
	InitMass           = ArrayType{Name: ArrayInitMass, Kind: KindFloat, Width: 1}
	Density            = ArrayType{Name: ArrayDensity, Kind: KindFloat, Width: 1}
	Area               = ArrayType{Name: ArrayArea, Kind: KindFloat, Width: 1}
	FracLost           = ArrayType{Name: ArrayFracLost, Kind: KindFloat, Width: 1}
	FracWater          = ArrayType{Name: ArrayFracWater, Kind: KindFloat, Width: 1}
	EvapDecayConstant  = ArrayType{Name: ArrayEvapDecayConstant, Kind: KindFloat}
	Windages           = ArrayType{Name: ArrayWindages, Kind: KindFloat, Width: 1}
	FracCoverage       = ArrayType{Name: ArrayFracCoverage, Kind: KindFloat, Width: 1, Initial: 1}
)

// DefaultArrayTypes are allocated for every run.
var DefaultArrayTypes = []ArrayType{
	Positions, NextPositions, LastWaterPositions, StatusCodes, SpillNum, ID, Mass, Age,
	FateStatus,
}

// Array is one named attribute for every live element, stored row-major.
type Array struct {
	Type  ArrayType
	width int

	floats []float64
	ints   []int64
}

func newArray(t ArrayType, width int) *Array {
	if width < 1 {
		width = 1
	}
	return &Array{Type: t, width: width}
}

// Width is the number of values per element.
func (a *Array) Width() int { return a.width }

// Len is the number of elements.
func (a *Array) Len() int {
	if a.Type.Kind == KindInt {
		return len(a.ints) / a.width
	}
	return len(a.floats) / a.width
}

// Floats exposes the backing store of a float array.
func (a *Array) Floats() []float64 { return a.floats }

// Ints exposes the backing store of an int array.
func (a *Array) Ints() []int64 { return a.ints }

// Row returns a view of element i's values in a float array.
func (a *Array) Row(i int) []float64 {
	return a.floats[i*a.width : (i+1)*a.width : (i+1)*a.width]
}

func (a *Array) Float(i int) float64       { return a.floats[i*a.width] }
func (a *Array) SetFloat(i int, v float64) { a.floats[i*a.width] = v }
func (a *Array) Int(i int) int64           { return a.ints[i*a.width] }
func (a *Array) SetInt(i int, v int64)     { a.ints[i*a.width] = v }

// Value returns value j of element i as a float regardless of kind.
func (a *Array) Value(i, j int) float64 {
	if a.Type.Kind == KindInt {
		return float64(a.ints[i*a.width+j])
	}
	return a.floats[i*a.width+j]
}

func (a *Array) grow(n int) {
	if a.Type.Kind == KindInt {
		init := int64(a.Type.Initial)
		for range n * a.width {
			a.ints = append(a.ints, init)
		}
		return
	}
	for range n * a.width {
		a.floats = append(a.floats, a.Type.Initial)
	}
}

// compact keeps the rows flagged in keep, preserving order.
func (a *Array) compact(keep []bool) {
	w := a.width
	out := 0
	for i, k := range keep {
		if !k {
			continue
		}
		if out != i {
			if a.Type.Kind == KindInt {
				copy(a.ints[out*w:(out+1)*w], a.ints[i*w:(i+1)*w])
			} else {
				copy(a.floats[out*w:(out+1)*w], a.floats[i*w:(i+1)*w])
			}
		}
		out++
	}
	if a.Type.Kind == KindInt {
		a.ints = a.ints[:out*w]
	} else {
		a.floats = a.floats[:out*w]
	}
}

func (a *Array) clone() *Array {
	return &Array{
		Type:   a.Type,
		width:  a.width,
		floats: slices.Clone(a.floats),
		ints:   slices.Clone(a.ints),
	}
}

func (a *Array) reset() {
	a.floats = a.floats[:0]
	a.ints = a.ints[:0]
}

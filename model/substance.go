package model

import "math"

// Component is one pseudo-component of an oil.
type Component struct {
	Name            string  `json:"name"`
	MassFraction    float64 `json:"mass_fraction"`
	MolecularWeight float64 `json:"molecular_weight"` // g/mol
	VaporPressure   float64 `json:"vapor_pressure"`   // Pa
}

// Substance describes the oil carried by a spill's elements.
type Substance struct {
	Name               string      `json:"name"`
	Density            float64     `json:"density"`             // kg/m^3 at RefTemperature
	RefTemperature     float64     `json:"ref_temperature"`     // K
	ThermalExpansion   float64     `json:"thermal_expansion"`   // 1/K
	PourPoint          float64     `json:"pour_point"`          // K
	KinematicViscosity float64     `json:"kinematic_viscosity"` // m^2/s
	Components         []Component `json:"components"`
}

// DefaultThermalExpansion is used when a substance does not set one.
const DefaultThermalExpansion = 0.0008

// DensityAt returns the oil density at temperature tempK.
func (s *Substance) DensityAt(tempK float64) float64 {
	k := s.ThermalExpansion
	if k == 0 {
		k = DefaultThermalExpansion
	}
	ref := s.RefTemperature
	if ref == 0 {
		ref = 288.15
	}
	return s.Density / (1 + k*(tempK-ref))
}

// NumComponents is the width of the mass_components array for this
// substance; a substance without components is treated as a single
// non-volatile component.
func (s *Substance) NumComponents() int {
	if s == nil || len(s.Components) == 0 {
		return 1
	}
	return len(s.Components)
}

// Fractions returns component mass fractions normalised to sum to one.
func (s *Substance) Fractions() []float64 {
	n := s.NumComponents()
	out := make([]float64, n)
	if s == nil || len(s.Components) == 0 {
		out[0] = 1
		return out
	}
	var total float64
	for i, c := range s.Components {
		out[i] = c.MassFraction
		total += c.MassFraction
	}
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(n)
		}
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// Validate reports problems with the substance definition.
func (s *Substance) Validate() []Message {
	var msgs []Message
	if s.Density <= 0 || math.IsNaN(s.Density) {
		msgs = append(msgs, Errorf(s.Name, "density must be positive, got %g", s.Density))
	}
	for _, c := range s.Components {
		if c.MassFraction < 0 {
			msgs = append(msgs, Errorf(s.Name, "component %q has negative mass fraction", c.Name))
		}
		if c.MolecularWeight < 0 || c.VaporPressure < 0 {
			msgs = append(msgs, Errorf(s.Name, "component %q has negative properties", c.Name))
		}
	}
	return msgs
}

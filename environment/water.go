package environment

import (
	"math"

	"github.com/signalsfoundry/spill-simulator/model"
)

// Water describes the ambient sea water.
type Water struct {
	Base

	Temperature        float64 // K
	Salinity           float64 // psu
	SedimentLoad       float64 // kg/m^3
	FixedDensity       float64 // kg/m^3, computed from Temperature and Salinity when zero
	KinematicViscosity float64 // m^2/s
}

// NewWater builds a water object with the usual defaults for an open ocean.
func NewWater(temperatureK, salinity float64) *Water {
	return &Water{
		Base:               newBase("Water", model.RoleWater),
		Temperature:        temperatureK,
		Salinity:           salinity,
		SedimentLoad:       0.005,
		KinematicViscosity: 1.0e-6,
	}
}

// Density returns the water density in kg/m^3.
func (w *Water) Density() float64 {
	if w.FixedDensity > 0 {
		return w.FixedDensity
	}
	tc := w.Temperature - 273.15
	return 999.84 + 0.8*w.Salinity - 0.0065*math.Pow(tc-4, 2)
}

func (w *Water) Validate() []model.Message {
	var msgs []model.Message
	if w.Temperature <= 0 {
		msgs = append(msgs, model.Errorf(w.Name(), "water temperature must be in kelvin, got %g", w.Temperature))
	}
	if w.Salinity < 0 {
		msgs = append(msgs, model.Errorf(w.Name(), "negative salinity %g", w.Salinity))
	}
	return msgs
}

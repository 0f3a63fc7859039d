package weatherers

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

const gasConstant = 8.314 // J/(mol K)

// Evaporation removes volatile components from surface elements at a rate
// set by each component's vapour pressure, the slick area and a
// wind-dependent mass transfer coefficient.
type Evaporation struct {
	Base

	wind  *environment.Wind
	water *environment.Water
}

// NewEvaporation builds the evaporation weatherer.
func NewEvaporation(water *environment.Water, wind *environment.Wind) *Evaporation {
	return &Evaporation{
		Base: newBase("Evaporation", SortEvaporation, model.RoleNone,
			elements.Area, elements.EvapDecayConstant, elements.FracWater, elements.FracLost,
			elements.InitMass, elements.MassComponents, elements.FateStatus),
		wind:  wind,
		water: water,
	}
}

func (e *Evaporation) Wind() *environment.Wind           { return e.wind }
func (e *Evaporation) SetWind(wind *environment.Wind)    { e.wind = wind }
func (e *Evaporation) Water() *environment.Water         { return e.water }
func (e *Evaporation) SetWater(water *environment.Water) { e.water = water }

func (e *Evaporation) Validate() []model.Message {
	var msgs []model.Message
	if !e.MakeDefaultRefs() {
		if e.wind == nil {
			msgs = append(msgs, model.Errorf(e.Name(), "evaporation needs a wind reference"))
		}
		if e.water == nil {
			msgs = append(msgs, model.Errorf(e.Name(), "evaporation needs a water reference"))
		}
	}
	return msgs
}

func (e *Evaporation) PrepareForModelRun(sc *elements.SpillContainer) error {
	initBalance(sc, BalanceEvaporated)
	return nil
}

// MassTransferCoefficient returns the evaporative mass transfer velocity in
// m/s for a wind speed in m/s.
func MassTransferCoefficient(u float64) float64 {
	const c = 0.0025
	u = math.Max(u, 1)
	if u <= 10 {
		return c * math.Pow(u, 0.78)
	}
	return 0.06 * c * u * u
}

func (e *Evaporation) WeatherElements(sc *elements.SpillContainer, dt time.Duration, t time.Time) error {
	if e.wind == nil || e.water == nil {
		return nil
	}
	k := MassTransferCoefficient(e.wind.SpeedAt(t))
	rt := gasConstant * e.water.Temperature

	area := sc.Array(elements.ArrayArea)
	mc := sc.Array(elements.ArrayMassComponents)
	decay := sc.Array(elements.ArrayEvapDecayConstant)
	fracWater := sc.Array(elements.ArrayFracWater)
	fracLost := sc.Array(elements.ArrayFracLost)
	initMass := sc.Array(elements.ArrayInitMass)
	mass := sc.Array(elements.ArrayMass)
	coverage := sc.Array(elements.ArrayFracCoverage)

	for _, sub := range sc.Substances() {
		if len(sub.Components) == 0 {
			continue
		}
		for _, i := range sc.FateIndices(sub, model.FateSurfaceWeather) {
			row := mc.Row(i)
			moles := 0.0
			for j, c := range sub.Components {
				if c.MolecularWeight > 0 {
					moles += row[j] / (c.MolecularWeight / 1000)
				}
			}
			if moles == 0 {
				continue
			}
			a := area.Float(i) * (1 - fracWater.Float(i))
			if coverage != nil {
				a *= coverage.Float(i)
			}
			before := floats.Sum(row)
			drow := decay.Row(i)
			for j, c := range sub.Components {
				drow[j] = -a * k * c.VaporPressure / (rt * moles)
				row[j] *= math.Exp(drow[j] * dt.Seconds())
			}
			after := floats.Sum(row)
			sc.MassBalance[BalanceEvaporated] += before - after
			mass.SetFloat(i, after)
			if m0 := initMass.Float(i); m0 > 0 {
				fracLost.SetFloat(i, 1-after/m0)
			}
		}
	}
	return nil
}

package weatherers

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

// WeatheringData keeps the bulk element properties (mass, density) and the
// container's mass balance consistent with the per-component masses the
// other weatherers change.
type WeatheringData struct {
	Base
	water *environment.Water
}

// NewWeatheringData builds the mass-balance weatherer.
func NewWeatheringData(water *environment.Water) *WeatheringData {
	return &WeatheringData{
		Base: newBase("WeatheringData", SortWeatheringData, model.RoleMassBalance,
			elements.MassComponents, elements.FateStatus, elements.InitMass, elements.Density, elements.FracWater),
		water: water,
	}
}

func (w *WeatheringData) Water() *environment.Water         { return w.water }
func (w *WeatheringData) SetWater(water *environment.Water) { w.water = water }

func (w *WeatheringData) PrepareForModelRun(sc *elements.SpillContainer) error {
	initBalance(sc, BalanceAmountReleased, BalanceFloating, BalanceBeached, BalanceOffMaps, BalanceNonWeathering)
	return nil
}

// InitializeData sets bulk properties of the n most recently released
// elements and books their mass as released and floating.
func (w *WeatheringData) InitializeData(sc *elements.SpillContainer, n int) error {
	total := sc.NumReleased()
	mass := sc.Array(elements.ArrayMass)
	for i := total - n; i < total; i++ {
		m := mass.Float(i)
		if a := sc.Array(elements.ArrayInitMass); a != nil {
			a.SetFloat(i, m)
		}
		if a := sc.Array(elements.ArrayDensity); a != nil {
			a.SetFloat(i, w.oilDensity(sc.SubstanceOf(i), 0))
		}
		sc.MassBalance[BalanceAmountReleased] += m
		sc.MassBalance[BalanceFloating] += m
	}
	return nil
}

// WeatherElements folds component masses back into the bulk mass and
// refreshes density for the ambient water temperature.
func (w *WeatheringData) WeatherElements(sc *elements.SpillContainer, _ time.Duration, _ time.Time) error {
	mc := sc.Array(elements.ArrayMassComponents)
	mass := sc.Array(elements.ArrayMass)
	density := sc.Array(elements.ArrayDensity)
	fracWater := sc.Array(elements.ArrayFracWater)
	for i := range sc.NumReleased() {
		if sc.Status(i) != model.StatusInWater {
			continue
		}
		if mc != nil {
			mass.SetFloat(i, floats.Sum(mc.Row(i)))
		}
		if density != nil {
			fw := 0.0
			if fracWater != nil {
				fw = fracWater.Float(i)
			}
			density.SetFloat(i, w.oilDensity(sc.SubstanceOf(i), fw))
		}
	}
	return nil
}

// ModelStepIsDone recomputes floating and beached mass and books elements
// about to be removed as off the map.
func (w *WeatheringData) ModelStepIsDone(sc *elements.SpillContainer) error {
	mass := sc.Array(elements.ArrayMass)
	var floating, beached, nonWeathering float64
	for i := range sc.NumReleased() {
		m := mass.Float(i)
		switch sc.Status(i) {
		case model.StatusInWater:
			floating += m
		case model.StatusOnLand:
			beached += m
		case model.StatusToBeRemoved:
			sc.MassBalance[BalanceOffMaps] += m
		}
		if sc.Fate(i).Has(model.FateNonWeather) {
			nonWeathering += m
		}
	}
	sc.MassBalance[BalanceFloating] = floating
	sc.MassBalance[BalanceBeached] = beached
	sc.MassBalance[BalanceNonWeathering] = nonWeathering
	return nil
}

func (w *WeatheringData) oilDensity(sub *model.Substance, fracWater float64) float64 {
	if sub == nil {
		return 0
	}
	rho := sub.Density
	if w.water != nil {
		rho = sub.DensityAt(w.water.Temperature)
		if fracWater > 0 {
			rho = (1-fracWater)*rho + fracWater*w.water.Density()
		}
	}
	return rho
}

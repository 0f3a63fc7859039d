package weatherers

import (
	"math"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

// Langmuir estimates the fraction of each slick's area left covered once
// wind-driven Langmuir circulation gathers the oil into windrows.
type Langmuir struct {
	Base

	wind  *environment.Wind
	water *environment.Water
}

// NewLangmuir builds the Langmuir mixing weatherer.
func NewLangmuir(water *environment.Water, wind *environment.Wind) *Langmuir {
	return &Langmuir{
		Base:  newBase("Langmuir", SortLangmuir, model.RoleLangmuir, elements.FracCoverage, elements.Area),
		wind:  wind,
		water: water,
	}
}

func (l *Langmuir) Wind() *environment.Wind           { return l.wind }
func (l *Langmuir) SetWind(wind *environment.Wind)    { l.wind = wind }
func (l *Langmuir) Water() *environment.Water         { return l.water }
func (l *Langmuir) SetWater(water *environment.Water) { l.water = water }

// Coverage returns the covered fraction for wind speed u in m/s.
func Coverage(u float64) float64 {
	if u <= 2 {
		return 1
	}
	return math.Max(0.1, 1-0.08*(u-2))
}

func (l *Langmuir) WeatherElements(sc *elements.SpillContainer, _ time.Duration, t time.Time) error {
	if l.wind == nil {
		return nil
	}
	frac := Coverage(l.wind.SpeedAt(t))
	cov := sc.Array(elements.ArrayFracCoverage)
	for _, sub := range sc.Substances() {
		for _, i := range sc.FateIndices(sub, model.FateSurfaceWeather) {
			cov.SetFloat(i, frac)
		}
	}
	return nil
}

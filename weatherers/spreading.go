package weatherers

import (
	"math"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

const (
	gravity = 9.80665
	fayK2   = 1.45
)

// FayGravityViscous grows each element's slick area following Fay's
// gravity-viscous spreading regime.
type FayGravityViscous struct {
	Base
	water *environment.Water
}

// NewFayGravityViscous builds the spreading weatherer.
func NewFayGravityViscous(water *environment.Water) *FayGravityViscous {
	return &FayGravityViscous{
		Base:  newBase("FayGravityViscous", SortSpreading, model.RoleSpreading, elements.Area, elements.InitMass, elements.Density),
		water: water,
	}
}

func (f *FayGravityViscous) Water() *environment.Water         { return f.water }
func (f *FayGravityViscous) SetWater(water *environment.Water) { f.water = water }

func (f *FayGravityViscous) Validate() []model.Message {
	if f.water == nil && !f.MakeDefaultRefs() {
		return []model.Message{model.Errorf(f.Name(), "spreading needs a water reference")}
	}
	return nil
}

// InitializeData gives new elements the area they reach after one second of
// spreading.
func (f *FayGravityViscous) InitializeData(sc *elements.SpillContainer, n int) error {
	area := sc.Array(elements.ArrayArea)
	total := sc.NumReleased()
	for i := total - n; i < total; i++ {
		area.SetFloat(i, f.areaAt(sc, i, 1))
	}
	return nil
}

func (f *FayGravityViscous) WeatherElements(sc *elements.SpillContainer, dt time.Duration, _ time.Time) error {
	if f.water == nil {
		return nil
	}
	area := sc.Array(elements.ArrayArea)
	age := sc.Array(elements.ArrayAge)
	for _, sub := range sc.Substances() {
		for _, i := range sc.FateIndices(sub, model.FateSurfaceWeather) {
			t := age.Float(i) + dt.Seconds()
			area.SetFloat(i, math.Max(area.Float(i), f.areaAt(sc, i, t)))
		}
	}
	return nil
}

// areaAt returns the area of element i's blob after t seconds.
func (f *FayGravityViscous) areaAt(sc *elements.SpillContainer, i int, t float64) float64 {
	if f.water == nil {
		return 0
	}
	sub := sc.SubstanceOf(i)
	if sub == nil {
		return 0
	}
	rhoW := f.water.Density()
	rhoO := sub.DensityAt(f.water.Temperature)
	delta := (rhoW - rhoO) / rhoW
	if delta <= 0 {
		return 0
	}
	mass := sc.Array(elements.ArrayMass).Float(i)
	if a := sc.Array(elements.ArrayInitMass); a != nil && a.Float(i) > 0 {
		mass = a.Float(i)
	}
	volume := mass / rhoO
	nu := f.water.KinematicViscosity
	if nu <= 0 {
		nu = 1e-6
	}
	r := fayK2 * math.Pow(delta*gravity*volume*volume*math.Pow(t, 1.5)/math.Sqrt(nu), 1.0/6)
	return math.Pi * r * r
}

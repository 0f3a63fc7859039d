package weatherers

import (
	"math"
	"slices"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

var t0 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func crude() *model.Substance {
	return &model.Substance{
		Name:           "crude",
		Density:        870,
		RefTemperature: 288.15,
		Components: []model.Component{
			{Name: "light", MassFraction: 0.3, MolecularWeight: 120, VaporPressure: 2000},
			{Name: "heavy", MassFraction: 0.7, MolecularWeight: 500},
		},
	}
}

type weatherer interface {
	ArrayTypes() []elements.ArrayType
	PrepareForModelRun(*elements.SpillContainer) error
	InitializeData(*elements.SpillContainer, int) error
}

func released(t *testing.T, ws ...weatherer) *elements.SpillContainer {
	t.Helper()
	sc := elements.NewSpillContainer(false)
	sc.AddSpill(elements.NewSpill("s", t0, 1000, 10, model.Position{}, crude()))
	var types []elements.ArrayType
	for _, w := range ws {
		types = append(types, w.ArrayTypes()...)
		if err := w.PrepareForModelRun(sc); err != nil {
			t.Fatalf("PrepareForModelRun error: %v", err)
		}
	}
	sc.PrepareForModelRun(types)
	n := sc.ReleaseElements(time.Minute, t0)
	for _, w := range ws {
		if err := w.InitializeData(sc, n); err != nil {
			t.Fatalf("InitializeData error: %v", err)
		}
	}
	sc.ResetFateView()
	return sc
}

func TestMassTransferCoefficient(t *testing.T) {
	if got := MassTransferCoefficient(0); got != MassTransferCoefficient(1) {
		t.Fatalf("calm wind not floored to 1 m/s: %v", got)
	}
	lo, hi := MassTransferCoefficient(10), MassTransferCoefficient(10.0001)
	if math.Abs(lo-hi) > 5e-4 {
		t.Fatalf("coefficient jumps at 10 m/s: %v vs %v", lo, hi)
	}
}

func TestEvaporationRemovesOnlyVolatiles(t *testing.T) {
	water := environment.NewWater(288.15, 35)
	wind := environment.NewConstantWind(5, 0)
	wd := NewWeatheringData(water)
	spread := NewFayGravityViscous(water)
	evap := NewEvaporation(water, wind)
	sc := released(t, wd, spread, evap)

	if err := evap.WeatherElements(sc, 15*time.Minute, t0); err != nil {
		t.Fatalf("WeatherElements error: %v", err)
	}

	row := sc.Array(elements.ArrayMassComponents).Row(0)
	if row[0] >= 30 {
		t.Fatalf("light component = %v, want < 30", row[0])
	}
	if math.Abs(row[1]-70) > 1e-9 {
		t.Fatalf("heavy component = %v, want 70", row[1])
	}
	lost := 10 * (100 - floats.Sum(row))
	if got := sc.MassBalance[BalanceEvaporated]; math.Abs(got-lost) > 1e-9 {
		t.Fatalf("evaporated = %v, want %v", got, lost)
	}
	if fl := sc.Array(elements.ArrayFracLost).Float(0); fl <= 0 || fl >= 0.3 {
		t.Fatalf("frac_lost = %v", fl)
	}
}

func TestEvaporationSkipsBeachedElements(t *testing.T) {
	water := environment.NewWater(288.15, 35)
	evap := NewEvaporation(water, environment.NewConstantWind(5, 0))
	sc := released(t, NewFayGravityViscous(water), evap)
	sc.SetStatus(0, model.StatusOnLand)
	sc.ResetFateView()

	_ = evap.WeatherElements(sc, time.Hour, t0)
	if got := sc.Array(elements.ArrayMassComponents).Row(0)[0]; math.Abs(got-30) > 1e-9 {
		t.Fatalf("beached element evaporated: %v", got)
	}
}

func TestSpreadingAreaGrows(t *testing.T) {
	water := environment.NewWater(288.15, 35)
	spread := NewFayGravityViscous(water)
	sc := released(t, spread)
	a0 := sc.Array(elements.ArrayArea).Float(0)
	if a0 <= 0 {
		t.Fatalf("initial area = %v, want > 0", a0)
	}
	sc.AgeElements(time.Hour)
	_ = spread.WeatherElements(sc, 15*time.Minute, t0)
	if a1 := sc.Array(elements.ArrayArea).Float(0); a1 <= a0 {
		t.Fatalf("area did not grow: %v -> %v", a0, a1)
	}
}

func TestWeatheringDataBooksReleasedMass(t *testing.T) {
	water := environment.NewWater(288.15, 35)
	wd := NewWeatheringData(water)
	sc := released(t, wd)
	if got := sc.MassBalance[BalanceAmountReleased]; got != 1000 {
		t.Fatalf("amount_released = %v, want 1000", got)
	}
	sc.SetStatus(2, model.StatusOnLand)
	sc.SetStatus(3, model.StatusToBeRemoved)
	_ = wd.ModelStepIsDone(sc)
	if sc.MassBalance[BalanceBeached] != 100 || sc.MassBalance[BalanceOffMaps] != 100 {
		t.Fatalf("mass balance = %v", sc.MassBalance)
	}
	if sc.MassBalance[BalanceFloating] != 800 {
		t.Fatalf("floating = %v, want 800", sc.MassBalance[BalanceFloating])
	}
}

func TestLangmuirCoverage(t *testing.T) {
	if Coverage(1) != 1 {
		t.Fatalf("light wind coverage = %v, want 1", Coverage(1))
	}
	if Coverage(100) != 0.1 {
		t.Fatalf("storm coverage = %v, want 0.1", Coverage(100))
	}
	water := environment.NewWater(288.15, 35)
	l := NewLangmuir(water, environment.NewConstantWind(7, 0))
	sc := released(t, l)
	_ = l.WeatherElements(sc, time.Minute, t0)
	if got := sc.Array(elements.ArrayFracCoverage).Float(0); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("frac_coverage = %v, want 0.6", got)
	}
}

func TestSortKeysPutBookkeepingLast(t *testing.T) {
	keys := []int{
		NewEvaporation(nil, nil).SortKey(),
		NewWeatheringData(nil).SortKey(),
		NewFayGravityViscous(nil).SortKey(),
		NewLangmuir(nil, nil).SortKey(),
	}
	if !slices.IsSorted([]int{keys[2], keys[3], keys[0], keys[1]}) {
		t.Fatalf("sort keys out of order: %v", keys)
	}
}

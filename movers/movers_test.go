package movers

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func container(t *testing.T, uncertain bool, n int, types ...elements.ArrayType) *elements.SpillContainer {
	t.Helper()
	sc := elements.NewSpillContainer(uncertain)
	sc.AddSpill(elements.NewSpill("s", t0, 100, n, model.Position{Lon: 0, Lat: 0}, nil))
	sc.PrepareForModelRun(types)
	if got := sc.ReleaseElements(time.Minute, t0); got != n {
		t.Fatalf("released %d, want %d", got, n)
	}
	return sc
}

func TestSimpleMoverDisplacement(t *testing.T) {
	sc := container(t, false, 2)
	sc.SetStatus(1, model.StatusOnLand)
	m := NewSimpleMover(0, 1, 0)

	d, err := m.GetMove(sc, 100*time.Second, t0)
	if err != nil {
		t.Fatalf("GetMove error: %v", err)
	}
	if got, want := d[1], 100/model.MetersPerDegreeLat; math.Abs(got-want) > 1e-12 {
		t.Fatalf("dlat = %v, want %v", got, want)
	}
	if d[3] != 0 || d[4] != 0 {
		t.Fatalf("beached element moved: %v", d[3:6])
	}
}

func TestWindMoverUsesWindage(t *testing.T) {
	sc := container(t, false, 1, elements.Windages)
	m := NewWindMover(environment.NewConstantWind(10, 270)) // from the west
	d, err := m.GetMove(sc, time.Second, t0)
	if err != nil {
		t.Fatalf("GetMove error: %v", err)
	}
	want := 0.3 / model.MetersPerDegreeLat
	if math.Abs(d[0]-want) > 1e-12 || math.Abs(d[1]) > 1e-12 {
		t.Fatalf("displacement = %v, want eastward %v", d[:2], want)
	}
}

func TestWindMoverWithoutWindIsInvalidWithoutDefaults(t *testing.T) {
	m := NewWindMover(nil)
	m.SetMakeDefaultRefs(false)
	if !model.HasErrors(m.Validate()) {
		t.Fatalf("expected error without wind")
	}
}

func TestCurrentMover(t *testing.T) {
	sc := container(t, false, 1)
	m := NewCurrentMover(environment.NewCurrent(0, -0.5))
	d, _ := m.GetMove(sc, 10*time.Second, t0)
	if math.Abs(d[1]+5/model.MetersPerDegreeLat) > 1e-12 {
		t.Fatalf("dlat = %v", d[1])
	}
}

func TestRandomMoverReseedIsReproducible(t *testing.T) {
	sc := container(t, false, 5)
	m := NewRandomMover(100000)
	first, _ := m.GetMove(sc, 900*time.Second, t0)
	m.Seed(1)
	second, _ := m.GetMove(sc, 900*time.Second, t0)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("reseeded walk differs at %d: %v vs %v", i, first[i], second[i])
		}
	}
	if first[0] == 0 && first[1] == 0 {
		t.Fatalf("random mover produced no displacement")
	}
}

package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

func queryModel(t *testing.T) *Model {
	t.Helper()
	m := mustModel(t, WithStartTime(t0), WithTimeStep(time.Hour))
	s := elements.NewSpill("line", t0, 400, 4, model.Position{Lon: 0, Lat: 10}, nil)
	s.EndPosition = &model.Position{Lon: 3, Lat: 10}
	if err := m.AddSpill(s); err != nil {
		t.Fatalf("AddSpill: %v", err)
	}
	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	return m
}

func TestSpillDataFiltersElements(t *testing.T) {
	m := queryModel(t)

	got, err := m.SpillData([]string{"lon", "mass"}, "lon >= 1.5 && lat == 10", false)
	if err != nil {
		t.Fatalf("SpillData: %v", err)
	}
	if !floats.EqualApprox(got["lon"], []float64{2, 3}, 1e-9) {
		t.Fatalf("lon = %v, want [2 3]", got["lon"])
	}
	if !slices.Equal(got["mass"], []float64{100, 100}) {
		t.Fatalf("mass = %v, want [100 100]", got["mass"])
	}

	all, err := m.SpillData([]string{"id"}, "", false)
	if err != nil {
		t.Fatalf("SpillData: %v", err)
	}
	if len(all["id"]) != 4 {
		t.Fatalf("unfiltered ids = %v", all["id"])
	}

	near, err := m.SpillData([]string{"lon", "z"}, "abs(lon - 1) < 0.5", false)
	if err != nil {
		t.Fatalf("SpillData: %v", err)
	}
	if !floats.EqualApprox(near["lon"], []float64{1}, 1e-9) || !slices.Equal(near["z"], []float64{0}) {
		t.Fatalf("near = %v, want the single element at lon 1", near)
	}
}

func TestSpillDataErrors(t *testing.T) {
	m := queryModel(t)
	if _, err := m.SpillData([]string{"lon"}, "depth > 1", false); !errors.Is(err, elements.ErrUnknownArray) {
		t.Fatalf("unknown variable err = %v", err)
	}
	if _, err := m.SpillData([]string{"lon"}, "lon +", false); err == nil {
		t.Fatalf("expected a parse error")
	}
	if _, err := m.SpillData([]string{"lon"}, "lon + 1", false); err == nil {
		t.Fatalf("expected a non-boolean condition to fail")
	}
	if _, err := m.SpillData([]string{"lon"}, "", true); !errors.Is(err, ErrNoUncertainData) {
		t.Fatalf("uncertain err = %v", err)
	}
}

func TestSpillProperties(t *testing.T) {
	m := queryModel(t)
	names := m.ListSpillProperties()
	for _, want := range []string{elements.ArrayPositions, elements.ArrayMass, elements.ArrayStatusCodes} {
		if !slices.Contains(names, want) {
			t.Fatalf("properties %v missing %q", names, want)
		}
	}
	a, err := m.SpillProperty(elements.ArrayMass, false)
	if err != nil {
		t.Fatalf("SpillProperty: %v", err)
	}
	if a.Len() != 4 {
		t.Fatalf("mass array has %d elements, want 4", a.Len())
	}
	if _, err := m.SpillProperty("nope", false); !errors.Is(err, elements.ErrUnknownArray) {
		t.Fatalf("unknown property err = %v", err)
	}
}

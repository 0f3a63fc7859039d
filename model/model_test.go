package model

import (
	"math"
	"testing"
)

func TestFateStatusBits(t *testing.T) {
	f := FateSurfaceWeather | FateSkim
	if !f.Has(FateSkim) {
		t.Fatalf("expected skim bit set")
	}
	if !f.Any(FateClaimed) {
		t.Fatalf("expected claimed fate")
	}
	if f.Has(FateBurn) {
		t.Fatalf("burn bit should not be set")
	}
	if got, want := f.String(), "surface_weather|skim"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestDensityDecreasesWithTemperature(t *testing.T) {
	s := &Substance{Name: "oil", Density: 900, RefTemperature: 288.15}
	if got := s.DensityAt(288.15); got != 900 {
		t.Fatalf("DensityAt(ref) = %v, want 900", got)
	}
	if s.DensityAt(300) >= s.DensityAt(280) {
		t.Fatalf("expected warmer oil to be lighter")
	}
}

func TestFractionsNormalised(t *testing.T) {
	s := &Substance{Components: []Component{{MassFraction: 2}, {MassFraction: 2}}}
	fr := s.Fractions()
	if len(fr) != 2 || math.Abs(fr[0]-0.5) > 1e-12 || math.Abs(fr[1]-0.5) > 1e-12 {
		t.Fatalf("Fractions() = %v, want [0.5 0.5]", fr)
	}

	var empty *Substance
	if got := empty.NumComponents(); got != 1 {
		t.Fatalf("nil substance NumComponents = %d, want 1", got)
	}
}

func TestMessageFormatting(t *testing.T) {
	m := Warningf("Model", "%s contains no spills", "Model")
	if got, want := m.String(), "warning: Model: Model contains no spills"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if HasErrors([]Message{m}) {
		t.Fatalf("warning reported as error")
	}
	if !HasErrors([]Message{m, Errorf("", "bad")}) {
		t.Fatalf("error not detected")
	}
}

package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/spill-simulator/movers"
	"github.com/signalsfoundry/spill-simulator/weatherers"
)

const scenarioJSONText = `{
  "name": "harbour",
  "mode": "gnome",
  "start_time": "2026-03-01T00:00:00Z",
  "duration": "3h",
  "time_step": "1h",
  "weathering_substeps": 2,
  "uncertain": true,
  "map": {
    "bounds": {"min_lon": -5, "min_lat": -5, "max_lon": 5, "max_lat": 5},
    "refloat_half_life": "2h"
  },
  "environment": [
    {"id": "wind-1", "type": "wind", "speed": 5, "direction": 270},
    {"id": "water-1", "type": "water", "temperature": 288.15, "salinity": 32}
  ],
  "movers": [
    {"type": "wind", "wind": "wind-1"},
    {"type": "random", "diffusion_coef": 10000}
  ],
  "weatherers": [
    {"type": "evaporation"}
  ],
  "outputters": [
    {"type": "weathering"},
    {"type": "geojson", "output_timestep": "2h"}
  ],
  "spills": [
    {
      "name": "tanker",
      "release_time": "2026-03-01T00:00:00Z",
      "amount": 10000,
      "num_elements": 50,
      "position": {"lon": 0, "lat": 0, "z": 0},
      "substance": {
        "name": "light crude",
        "density": 850,
        "components": [
          {"name": "volatile", "mass_fraction": 0.3, "molecular_weight": 100, "vapor_pressure": 5000},
          {"name": "residual", "mass_fraction": 0.7, "molecular_weight": 500, "vapor_pressure": 0}
        ]
      }
    }
  ]
}`

func TestLoadScenarioBuildsModel(t *testing.T) {
	m, err := LoadScenario(strings.NewReader(scenarioJSONText))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if m.Name() != "harbour" || !m.Uncertain() || m.WeatheringSubsteps() != 2 {
		t.Fatalf("settings not applied: name=%q uncertain=%v substeps=%d", m.Name(), m.Uncertain(), m.WeatheringSubsteps())
	}
	if m.NumTimeSteps() != 4 {
		t.Fatalf("NumTimeSteps = %d, want 4", m.NumTimeSteps())
	}
	if m.Environment().Len() != 2 || m.Movers().Len() != 2 || m.Outputters().Len() != 2 || m.Spills().Len() != 1 {
		t.Fatalf("collections: env=%d movers=%d outputters=%d spills=%d",
			m.Environment().Len(), m.Movers().Len(), m.Outputters().Len(), m.Spills().Len())
	}
	wm, ok := m.Movers().Values()[0].(*movers.WindMover)
	if !ok {
		t.Fatalf("first mover is %T", m.Movers().Values()[0])
	}
	if wm.Wind() == nil || wm.Wind().ID() != "wind-1" {
		t.Fatalf("wind mover not bound to wind-1")
	}
}

func TestLoadScenarioFullRun(t *testing.T) {
	m, err := LoadScenario(strings.NewReader(scenarioJSONText))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	outs, err := m.FullRun(context.Background(), true)
	if err != nil {
		t.Fatalf("FullRun: %v", err)
	}
	if len(outs) != 4 {
		t.Fatalf("steps = %d, want 4", len(outs))
	}
	if _, ok := outs[1].Outputs["TrajectoryGeoJSON"]; ok {
		t.Fatalf("geojson written at step 1 despite a 2h output interval")
	}
	for _, step := range []int{0, 2, 3} {
		if _, ok := outs[step].Outputs["TrajectoryGeoJSON"]; !ok {
			t.Fatalf("geojson missing at step %d", step)
		}
	}
	if m.Weatherers().Len() != 4 {
		t.Fatalf("weatherers = %d, want evaporation plus three defaults", m.Weatherers().Len())
	}
	last := m.Weatherers().Values()[m.Weatherers().Len()-1]
	if _, ok := last.(*weatherers.WeatheringData); !ok {
		t.Fatalf("last weatherer is %T, want mass balance bookkeeping last", last)
	}

	sc := m.Spills().Certain()
	if sc.MassBalance[weatherers.BalanceEvaporated] <= 0 {
		t.Fatalf("nothing evaporated: %v", sc.MassBalance)
	}
	if got := sc.MassBalance[weatherers.BalanceAmountReleased]; got < 9999 || got > 10001 {
		t.Fatalf("amount_released = %v, want 10000", got)
	}
	if s := m.Spills().Spills()[0]; s.Water() == nil {
		t.Fatalf("spill water not resolved")
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name, json string
		want       error
	}{
		{"bad json", `{"name": `, nil},
		{"unknown field", `{"nme": "x"}`, nil},
		{"unknown mover", `{"movers": [{"type": "teleport"}]}`, nil},
		{"unknown ref", `{"movers": [{"type": "wind", "wind": "missing"}]}`, ErrUnknownObject},
		{"bad mode", `{"mode": "pygnome"}`, ErrInvalidMode},
		{"bad duration", `{"duration": "forever"}`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(strings.NewReader(tc.json))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadScenarioOptionsOverride(t *testing.T) {
	m, err := LoadScenario(strings.NewReader(`{"time_step": "1h"}`), WithTimeStep(30*time.Minute))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if m.TimeStep() != 30*time.Minute {
		t.Fatalf("TimeStep = %v, want the option to win", m.TimeStep())
	}
}

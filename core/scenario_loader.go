package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
	"github.com/signalsfoundry/spill-simulator/movers"
	"github.com/signalsfoundry/spill-simulator/outputters"
	"github.com/signalsfoundry/spill-simulator/spillmap"
	"github.com/signalsfoundry/spill-simulator/weatherers"
)

// internal JSON shapes, unexported so the file format can evolve freely.
type scenarioJSON struct {
	Name               string            `json:"name"`
	Mode               string            `json:"mode"`
	StartTime          *time.Time        `json:"start_time"`
	Duration           string            `json:"duration"`
	TimeStep           string            `json:"time_step"`
	WeatheringSubsteps int               `json:"weathering_substeps"`
	Uncertain          bool              `json:"uncertain"`
	CacheEnabled       *bool             `json:"cache_enabled"`
	MakeDefaultRefs    *bool             `json:"make_default_refs"`
	Map                *mapJSON          `json:"map"`
	Environment        []environmentJSON `json:"environment"`
	Movers             []componentJSON   `json:"movers"`
	Weatherers         []componentJSON   `json:"weatherers"`
	Outputters         []outputterJSON   `json:"outputters"`
	Spills             []spillJSON       `json:"spills"`
}

type mapJSON struct {
	Bounds          spillmap.Box   `json:"bounds"`
	Land            []spillmap.Box `json:"land"`
	RefloatHalfLife string         `json:"refloat_half_life"`
}

type environmentJSON struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "wind" | "water" | "waves" | "current"
	Name string `json:"name"`

	// wind
	Speed     float64                  `json:"speed"`
	Direction float64                  `json:"direction"`
	Samples   []environment.WindSample `json:"samples"`

	// water
	Temperature  float64 `json:"temperature"`
	Salinity     float64 `json:"salinity"`
	FixedDensity float64 `json:"fixed_density"`

	// current
	U float64 `json:"u"`
	V float64 `json:"v"`
}

type componentJSON struct {
	Type string `json:"type"`
	Name string `json:"name"`
	On   *bool  `json:"on"`

	// references by environment id; empty leaves them to be resolved
	Wind    string `json:"wind"`
	Water   string `json:"water"`
	Current string `json:"current"`

	U             float64 `json:"u"`
	V             float64 `json:"v"`
	W             float64 `json:"w"`
	DiffusionCoef float64 `json:"diffusion_coef"`
}

type outputterJSON struct {
	Type           string `json:"type"` // "geojson" | "weathering"
	Name           string `json:"name"`
	Dir            string `json:"dir"`
	Path           string `json:"path"`
	OutputTimestep string `json:"output_timestep"`
	OutputZeroStep *bool  `json:"output_zero_step"`
	OutputLastStep *bool  `json:"output_last_step"`
}

type spillJSON struct {
	Name           string           `json:"name"`
	ReleaseTime    time.Time        `json:"release_time"`
	EndReleaseTime *time.Time       `json:"end_release_time"`
	Amount         float64          `json:"amount"`
	NumElements    int              `json:"num_elements"`
	Position       model.Position   `json:"position"`
	EndPosition    *model.Position  `json:"end_position"`
	Windage        *float64         `json:"windage"`
	Substance      *model.Substance `json:"substance"`
}

// LoadScenario decodes a JSON scenario from r into a wired model. opts are
// applied after the scenario's own settings and override them.
//
// Only JSON and structural errors fail the load; configuration problems are
// reported later by CheckInputs like they would be for a model built in
// code.
func LoadScenario(r io.Reader, opts ...ModelOption) (*Model, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	base, err := payload.options()
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}
	m, err := NewModel(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}

	// 1) Environment
	env := make(map[string]Environment, len(payload.Environment))
	for _, js := range payload.Environment {
		e, err := js.build()
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := m.Environment().Add(e); err != nil {
			return nil, fmt.Errorf("LoadScenario: environment %q: %w", js.ID, err)
		}
		env[e.ID()] = e
	}

	// 2) Movers
	for _, js := range payload.Movers {
		mv, err := js.mover()
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := js.bind(mv, env); err != nil {
			return nil, fmt.Errorf("LoadScenario: mover %q: %w", js.Type, err)
		}
		if err := m.Movers().Add(mv); err != nil {
			return nil, fmt.Errorf("LoadScenario: mover %q: %w", js.Type, err)
		}
	}

	// 3) Weatherers
	for _, js := range payload.Weatherers {
		w, err := js.weatherer()
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := js.bind(w, env); err != nil {
			return nil, fmt.Errorf("LoadScenario: weatherer %q: %w", js.Type, err)
		}
		if err := m.Weatherers().Add(w); err != nil {
			return nil, fmt.Errorf("LoadScenario: weatherer %q: %w", js.Type, err)
		}
	}

	// 4) Outputters
	for _, js := range payload.Outputters {
		o, err := js.build()
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := m.Outputters().Add(o); err != nil {
			return nil, fmt.Errorf("LoadScenario: outputter %q: %w", js.Type, err)
		}
	}

	// 5) Spills
	for _, js := range payload.Spills {
		if err := m.AddSpill(js.build()); err != nil {
			return nil, fmt.Errorf("LoadScenario: spill %q: %w", js.Name, err)
		}
	}
	return m, nil
}

func (s scenarioJSON) options() ([]ModelOption, error) {
	var opts []ModelOption
	if s.Name != "" {
		opts = append(opts, WithName(s.Name))
	}
	if s.Mode != "" {
		opts = append(opts, WithMode(Mode(strings.ToLower(s.Mode))))
	}
	if s.StartTime != nil {
		opts = append(opts, WithStartTime(s.StartTime.UTC()))
	}
	if s.Duration != "" {
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return nil, fmt.Errorf("duration: %w", err)
		}
		opts = append(opts, WithDuration(d))
	}
	if s.TimeStep != "" {
		d, err := time.ParseDuration(s.TimeStep)
		if err != nil {
			return nil, fmt.Errorf("time_step: %w", err)
		}
		opts = append(opts, WithTimeStep(d))
	}
	if s.WeatheringSubsteps > 0 {
		opts = append(opts, WithWeatheringSubsteps(s.WeatheringSubsteps))
	}
	if s.Uncertain {
		opts = append(opts, WithUncertain(true))
	}
	if s.CacheEnabled != nil {
		opts = append(opts, WithCacheEnabled(*s.CacheEnabled))
	}
	if s.MakeDefaultRefs != nil {
		opts = append(opts, WithMakeDefaultRefs(*s.MakeDefaultRefs))
	}
	if s.Map != nil {
		mp := spillmap.New(s.Map.Bounds, s.Map.Land...)
		if s.Map.RefloatHalfLife != "" {
			d, err := time.ParseDuration(s.Map.RefloatHalfLife)
			if err != nil {
				return nil, fmt.Errorf("map refloat_half_life: %w", err)
			}
			mp.RefloatHalfLife = d
		}
		opts = append(opts, WithMap(mp))
	}
	return opts, nil
}

func (js environmentJSON) build() (Environment, error) {
	var e interface {
		Environment
		SetID(string)
		SetName(string)
	}
	switch strings.ToLower(strings.TrimSpace(js.Type)) {
	case "wind":
		if len(js.Samples) > 0 {
			e = environment.NewWind(js.Samples...)
		} else {
			e = environment.NewConstantWind(js.Speed, js.Direction)
		}
	case "water":
		w := environment.NewWater(js.Temperature, js.Salinity)
		w.FixedDensity = js.FixedDensity
		e = w
	case "waves":
		e = environment.NewWaves()
	case "current":
		e = environment.NewCurrent(js.U, js.V)
	default:
		return nil, fmt.Errorf("unknown environment type %q", js.Type)
	}
	if js.ID != "" {
		e.SetID(js.ID)
	}
	if js.Name != "" {
		e.SetName(js.Name)
	}
	return e, nil
}

func (js componentJSON) mover() (Mover, error) {
	var mv Mover
	switch strings.ToLower(strings.TrimSpace(js.Type)) {
	case "wind":
		mv = movers.NewWindMover(nil)
	case "current":
		mv = movers.NewCurrentMover(nil)
	case "random", "diffusion":
		mv = movers.NewRandomMover(js.DiffusionCoef)
	case "simple", "constant":
		mv = movers.NewSimpleMover(js.U, js.V, js.W)
	default:
		return nil, fmt.Errorf("unknown mover type %q", js.Type)
	}
	js.apply(mv)
	return mv, nil
}

func (js componentJSON) weatherer() (Weatherer, error) {
	var w Weatherer
	switch strings.ToLower(strings.TrimSpace(js.Type)) {
	case "evaporation":
		w = weatherers.NewEvaporation(nil, nil)
	case "spreading", "fay_gravity_viscous":
		w = weatherers.NewFayGravityViscous(nil)
	case "langmuir":
		w = weatherers.NewLangmuir(nil, nil)
	case "weathering_data", "mass_balance":
		w = weatherers.NewWeatheringData(nil)
	default:
		return nil, fmt.Errorf("unknown weatherer type %q", js.Type)
	}
	js.apply(w)
	return w, nil
}

func (js componentJSON) apply(p Participant) {
	if js.Name != "" {
		if n, ok := p.(interface{ SetName(string) }); ok {
			n.SetName(js.Name)
		}
	}
	if js.On != nil {
		p.SetOn(*js.On)
	}
}

// bind sets the explicit references a component names.
func (js componentJSON) bind(obj any, env map[string]Environment) error {
	lookup := func(id string) (Environment, error) {
		e, ok := env[id]
		if !ok {
			return nil, fmt.Errorf("%w: environment %q", ErrUnknownObject, id)
		}
		return e, nil
	}
	if js.Wind != "" {
		e, err := lookup(js.Wind)
		if err != nil {
			return err
		}
		r, ok := obj.(WindReferrer)
		w, isWind := e.(*environment.Wind)
		if !ok || !isWind {
			return fmt.Errorf("cannot use %q as wind", js.Wind)
		}
		r.SetWind(w)
	}
	if js.Water != "" {
		e, err := lookup(js.Water)
		if err != nil {
			return err
		}
		r, ok := obj.(WaterReferrer)
		w, isWater := e.(*environment.Water)
		if !ok || !isWater {
			return fmt.Errorf("cannot use %q as water", js.Water)
		}
		r.SetWater(w)
	}
	if js.Current != "" {
		e, err := lookup(js.Current)
		if err != nil {
			return err
		}
		r, ok := obj.(CurrentReferrer)
		c, isCurrent := e.(*environment.Current)
		if !ok || !isCurrent {
			return fmt.Errorf("cannot use %q as current", js.Current)
		}
		r.SetCurrent(c)
	}
	return nil
}

func (js outputterJSON) build() (Outputter, error) {
	var (
		o    Outputter
		base *outputters.Base
	)
	switch strings.ToLower(strings.TrimSpace(js.Type)) {
	case "geojson", "trajectory":
		g := outputters.NewTrajectoryGeoJSON(js.Dir)
		o, base = g, &g.Base
	case "weathering":
		w := outputters.NewWeatheringOutput(js.Path)
		o, base = w, &w.Base
	default:
		return nil, fmt.Errorf("unknown outputter type %q", js.Type)
	}
	if js.Name != "" {
		base.SetName(js.Name)
	}
	if js.OutputTimestep != "" {
		d, err := time.ParseDuration(js.OutputTimestep)
		if err != nil {
			return nil, fmt.Errorf("outputter %q output_timestep: %w", js.Type, err)
		}
		base.OutputTimestep = d
	}
	if js.OutputZeroStep != nil {
		base.OutputZeroStep = *js.OutputZeroStep
	}
	if js.OutputLastStep != nil {
		base.OutputLastStep = *js.OutputLastStep
	}
	return o, nil
}

func (js spillJSON) build() *elements.Spill {
	s := elements.NewSpill(js.Name, js.ReleaseTime.UTC(), js.Amount, js.NumElements, js.Position, js.Substance)
	if js.EndReleaseTime != nil {
		s.EndReleaseTime = js.EndReleaseTime.UTC()
	}
	if js.EndPosition != nil {
		end := *js.EndPosition
		s.EndPosition = &end
	}
	if js.Windage != nil {
		s.Windage = *js.Windage
	}
	return s
}

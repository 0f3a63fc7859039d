package core

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/cache"
	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
	"github.com/signalsfoundry/spill-simulator/outputters"
)

// Participant is what every mover, weatherer and outputter exposes to the
// engine.
type Participant interface {
	ID() string
	Name() string
	On() bool
	SetOn(bool)
	MakeDefaultRefs() bool
	SetMakeDefaultRefs(bool)
	ArrayTypes() []elements.ArrayType
	Validate() []model.Message
}

// Mover computes per-step displacements. GetMove returns a buffer aligned
// to the container's positions (three values per element).
type Mover interface {
	Participant
	PrepareForModelRun() error
	PrepareForModelStep(sc *elements.SpillContainer, timeStep time.Duration, modelTime time.Time) error
	GetMove(sc *elements.SpillContainer, timeStep time.Duration, modelTime time.Time) ([]float64, error)
	ModelStepIsDone(sc *elements.SpillContainer) error
	PostModelRun() error
}

// Weatherer changes element mass and composition over weathering substeps.
type Weatherer interface {
	Participant
	SortKey() int
	PrepareForModelRun(sc *elements.SpillContainer) error
	PrepareForModelStep(sc *elements.SpillContainer, timeStep time.Duration, modelTime time.Time) error
	WeatherElements(sc *elements.SpillContainer, substep time.Duration, start time.Time) error
	InitializeData(sc *elements.SpillContainer, numNew int) error
	ModelStepIsDone(sc *elements.SpillContainer) error
	PostModelRun() error
}

// Environment is a forcing object tagged with the role it satisfies.
type Environment interface {
	ID() string
	Name() string
	On() bool
	MakeDefaultRefs() bool
	SetMakeDefaultRefs(bool)
	Role() model.Role
	Validate() []model.Message
	PrepareForModelRun(start time.Time) error
	PrepareForModelStep(modelTime time.Time) error
	PostModelRun() error
}

// Outputter formats per-step results.
type Outputter interface {
	Participant
	SetCache(c *cache.ElementCache)
	PrepareForModelRun(info outputters.RunInfo) error
	PrepareForModelStep(timeStep time.Duration, modelTime time.Time) error
	WriteOutput(step int, isLast bool) (any, error)
	ModelStepIsDone() error
	PostModelRun() error
	Rewind() error
}

// Map beaches, refloats and flags elements that leave the domain.
type Map interface {
	ID() string
	Name() string
	Validate() []model.Message
	RefloatElements(sc *elements.SpillContainer, timeStep time.Duration) error
	BeachElements(sc *elements.SpillContainer) error
}

// Objects that need an environment reference implement the matching
// referrer. Unset references are nil.
type (
	WindReferrer interface {
		Wind() *environment.Wind
		SetWind(*environment.Wind)
	}
	WaterReferrer interface {
		Water() *environment.Water
		SetWater(*environment.Water)
	}
	WavesReferrer interface {
		Waves() *environment.Waves
		SetWaves(*environment.Waves)
	}
	CurrentReferrer interface {
		Current() *environment.Current
		SetCurrent(*environment.Current)
	}
)

// RoleTagged is implemented by weatherers that fill one of the default
// weathering roles (mass balance, spreading, Langmuir).
type RoleTagged interface {
	RefAs() model.Role
}

// Seeder is implemented by anything holding random state; rewinding reseeds
// it with a fixed seed.
type Seeder interface {
	Seed(seed uint64)
}

// StepMetricsRecorder receives per-step run statistics.
type StepMetricsRecorder interface {
	ObserveStep(step int, elapsed time.Duration, released, live int)
	ObserveMassBalance(uncertain bool, balance map[string]float64)
	ObserveRunComplete()
}

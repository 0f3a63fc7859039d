// Package weatherers implements the processes that change element mass and
// composition. Each weatherer is integrated over the engine's weathering
// substeps; most use per-substep constant-coefficient exponential decay.
package weatherers

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

// Sort keys fixing the order weatherers run in. Lower runs first; mass
// balance bookkeeping always runs last.
const (
	SortChemicalDispersion = iota
	SortSkimmer
	SortBurn
	SortBeaching
	SortSpreading
	SortLangmuir
	SortEvaporation
	SortNaturalDispersion
	SortDissolution
	SortEmulsification
	SortWeatheringData
)

// Base supplies identity, flags, sort key and no-op lifecycle hooks.
type Base struct {
	model.Object

	sortKey int
	role    model.Role
	arrays  []elements.ArrayType
}

func newBase(name string, sortKey int, role model.Role, arrays ...elements.ArrayType) Base {
	return Base{Object: model.NewObject(name), sortKey: sortKey, role: role, arrays: arrays}
}

// SortKey orders weatherers within a run.
func (b *Base) SortKey() int { return b.sortKey }

// RefAs is the default-process role this weatherer fills, if any.
func (b *Base) RefAs() model.Role { return b.role }

func (b *Base) ArrayTypes() []elements.ArrayType { return b.arrays }
func (b *Base) Validate() []model.Message        { return nil }

func (b *Base) PrepareForModelRun(*elements.SpillContainer) error { return nil }

func (b *Base) PrepareForModelStep(*elements.SpillContainer, time.Duration, time.Time) error {
	return nil
}

func (b *Base) WeatherElements(*elements.SpillContainer, time.Duration, time.Time) error {
	return nil
}

func (b *Base) InitializeData(*elements.SpillContainer, int) error { return nil }
func (b *Base) ModelStepIsDone(*elements.SpillContainer) error     { return nil }
func (b *Base) PostModelRun() error                                { return nil }

// Mass balance keys.
const (
	BalanceAmountReleased = "amount_released"
	BalanceFloating       = "floating"
	BalanceBeached        = "beached"
	BalanceOffMaps        = "off_maps"
	BalanceNonWeathering  = "non_weathering"
	BalanceEvaporated     = "evaporated"
)

func initBalance(sc *elements.SpillContainer, keys ...string) {
	for _, k := range keys {
		if _, ok := sc.MassBalance[k]; !ok {
			sc.MassBalance[k] = 0
		}
	}
}

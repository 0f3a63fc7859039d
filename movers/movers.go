// Package movers computes per-step element displacements. Movers are
// additive: the engine sums every active mover's displacement into the
// next-position buffer.
package movers

import (
	"math"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

// Base supplies identity, flags and no-op lifecycle hooks.
type Base struct {
	model.Object
}

func newBase(name string) Base { return Base{Object: model.NewObject(name)} }

func (b *Base) ArrayTypes() []elements.ArrayType { return nil }
func (b *Base) Validate() []model.Message        { return nil }
func (b *Base) PrepareForModelRun() error        { return nil }

func (b *Base) PrepareForModelStep(*elements.SpillContainer, time.Duration, time.Time) error {
	return nil
}

func (b *Base) ModelStepIsDone(*elements.SpillContainer) error { return nil }
func (b *Base) PostModelRun() error                            { return nil }

// metersToLonLat converts an east/north displacement at latitude lat into
// degrees.
func metersToLonLat(dx, dy, lat float64) (dlon, dlat float64) {
	dlat = dy / model.MetersPerDegreeLat
	dlon = dx / (model.MetersPerDegreeLat * math.Cos(lat*math.Pi/180))
	return dlon, dlat
}

// delta returns a zeroed displacement buffer aligned to positions.
func delta(sc *elements.SpillContainer) []float64 {
	return make([]float64, 3*sc.NumReleased())
}

// movable reports whether element i can be moved by surface forcing.
func movable(sc *elements.SpillContainer, i int) bool {
	return sc.Status(i) == model.StatusInWater
}

// Package spillmap provides the land/water map elements move over: it beaches
// elements that hit land, refloats them over time and flags elements that
// leave the map.
package spillmap

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

// Box is an axis-aligned lon/lat rectangle in degrees.
type Box struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether (lon, lat) is inside the box, edges included.
func (b Box) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// World covers the whole globe.
var World = Box{MinLon: -360, MinLat: -90, MaxLon: 360, MaxLat: 90}

// DefaultRefloatHalfLife is how long half of the beached elements take to
// float off again.
const DefaultRefloatHalfLife = time.Hour

// Map is a rectangular domain with optional rectangular land areas.
type Map struct {
	model.Object

	Bounds          Box
	Land            []Box
	RefloatHalfLife time.Duration // zero keeps beached elements on land

	rng *rand.Rand
}

// New builds a map over bounds.
func New(bounds Box, land ...Box) *Map {
	m := &Map{Object: model.NewObject("Map"), Bounds: bounds, Land: land, RefloatHalfLife: DefaultRefloatHalfLife}
	m.Seed(1)
	return m
}

// NewWaterWorld builds a map with no land and no edges.
func NewWaterWorld() *Map {
	m := New(World)
	m.SetName("WaterWorld")
	return m
}

// Seed resets the refloat random stream.
func (m *Map) Seed(seed uint64) {
	m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (m *Map) Validate() []model.Message {
	if m.Bounds.MinLon >= m.Bounds.MaxLon || m.Bounds.MinLat >= m.Bounds.MaxLat {
		return []model.Message{model.Errorf(m.Name(), "map bounds are empty")}
	}
	return nil
}

// OnLand reports whether a point lies in any land area.
func (m *Map) OnLand(lon, lat float64) bool {
	for _, b := range m.Land {
		if b.Contains(lon, lat) {
			return true
		}
	}
	return false
}

// BeachElements inspects every in-water element's next position: elements
// leaving the bounds become off_maps, elements landing on land become
// on_land and are held at their last water position.
func (m *Map) BeachElements(sc *elements.SpillContainer) error {
	next := sc.Array(elements.ArrayNextPositions)
	last := sc.Array(elements.ArrayLastWaterPositions)
	for i := range sc.NumReleased() {
		if sc.Status(i) != model.StatusInWater {
			continue
		}
		np := next.Row(i)
		switch {
		case !m.Bounds.Contains(np[0], np[1]):
			sc.SetStatus(i, model.StatusOffMaps)
		case m.OnLand(np[0], np[1]):
			sc.SetStatus(i, model.StatusOnLand)
			copy(np, last.Row(i))
		default:
			copy(last.Row(i), np)
		}
	}
	return nil
}

// RefloatElements returns beached elements to the water with the
// probability implied by the refloat half-life over timeStep.
func (m *Map) RefloatElements(sc *elements.SpillContainer, timeStep time.Duration) error {
	if m.RefloatHalfLife <= 0 {
		return nil
	}
	p := 1 - math.Pow(0.5, timeStep.Seconds()/m.RefloatHalfLife.Seconds())
	for i := range sc.NumReleased() {
		if sc.Status(i) == model.StatusOnLand && m.rng.Float64() < p {
			sc.SetStatus(i, model.StatusInWater)
		}
	}
	return nil
}

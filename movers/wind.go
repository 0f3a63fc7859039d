package movers

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

// WindMover drifts surface elements with a fraction (the windage) of the
// wind velocity.
type WindMover struct {
	Base

	// UncertainSpeedScale multiplies the wind for the uncertain realization.
	UncertainSpeedScale float64

	wind *environment.Wind
}

// NewWindMover builds a wind mover; wind may be nil and resolved later.
func NewWindMover(wind *environment.Wind) *WindMover {
	return &WindMover{Base: newBase("WindMover"), UncertainSpeedScale: 1.25, wind: wind}
}

func (m *WindMover) Wind() *environment.Wind        { return m.wind }
func (m *WindMover) SetWind(wind *environment.Wind) { m.wind = wind }

func (m *WindMover) ArrayTypes() []elements.ArrayType {
	return []elements.ArrayType{elements.Windages}
}

func (m *WindMover) Validate() []model.Message {
	if m.wind == nil && !m.MakeDefaultRefs() {
		return []model.Message{model.Errorf(m.Name(), "wind mover has no wind")}
	}
	return nil
}

func (m *WindMover) GetMove(sc *elements.SpillContainer, timeStep time.Duration, modelTime time.Time) ([]float64, error) {
	out := delta(sc)
	if m.wind == nil {
		return out, nil
	}
	u, v := m.wind.VelocityAt(modelTime)
	if sc.Uncertain() {
		u, v = u*m.UncertainSpeedScale, v*m.UncertainSpeedScale
	}
	pos := sc.Array(elements.ArrayPositions)
	windages := sc.Array(elements.ArrayWindages)
	dt := timeStep.Seconds()
	for i := range sc.NumReleased() {
		row := pos.Row(i)
		if !movable(sc, i) || row[2] != 0 {
			continue
		}
		w := elements.DefaultWindage
		if windages != nil {
			w = windages.Float(i)
		}
		out[3*i], out[3*i+1] = metersToLonLat(w*u*dt, w*v*dt, row[1])
	}
	return out, nil
}

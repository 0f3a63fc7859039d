package movers

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
)

// SimpleMover moves every in-water element with a constant velocity.
type SimpleMover struct {
	Base
	U, V, W float64 // m/s east, north and down
}

// NewSimpleMover builds a constant-velocity mover.
func NewSimpleMover(u, v, w float64) *SimpleMover {
	return &SimpleMover{Base: newBase("SimpleMover"), U: u, V: v, W: w}
}

func (m *SimpleMover) GetMove(sc *elements.SpillContainer, timeStep time.Duration, _ time.Time) ([]float64, error) {
	out := delta(sc)
	pos := sc.Array(elements.ArrayPositions)
	dt := timeStep.Seconds()
	for i := range sc.NumReleased() {
		if !movable(sc, i) {
			continue
		}
		dlon, dlat := metersToLonLat(m.U*dt, m.V*dt, pos.Row(i)[1])
		out[3*i], out[3*i+1], out[3*i+2] = dlon, dlat, m.W*dt
	}
	return out, nil
}

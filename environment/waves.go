package environment

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/model"
)

// Waves derives a wave field from the wind over the water. Both references
// are usually filled in during reference resolution.
type Waves struct {
	Base

	wind  *Wind
	water *Water
}

// NewWaves builds a waves object with no references attached.
func NewWaves() *Waves {
	return &Waves{Base: newBase("Waves", model.RoleWaves)}
}

func (w *Waves) Wind() *Wind           { return w.wind }
func (w *Waves) SetWind(wind *Wind)    { w.wind = wind }
func (w *Waves) Water() *Water         { return w.water }
func (w *Waves) SetWater(water *Water) { w.water = water }

// HeightAt returns the significant wave height in metres for a fully
// developed sea.
func (w *Waves) HeightAt(t time.Time) float64 {
	if w.wind == nil {
		return 0
	}
	u := w.wind.SpeedAt(t)
	return 0.0246 * u * u
}

func (w *Waves) Validate() []model.Message {
	var msgs []model.Message
	if w.wind == nil && !w.MakeDefaultRefs() {
		msgs = append(msgs, model.Errorf(w.Name(), "waves need a wind reference"))
	}
	if w.water == nil && !w.MakeDefaultRefs() {
		msgs = append(msgs, model.Errorf(w.Name(), "waves need a water reference"))
	}
	return msgs
}

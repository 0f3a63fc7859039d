// Package environment holds the forcing objects (wind, water, waves,
// current) that movers and weatherers read during a run.
package environment

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/model"
)

// Base implements the lifecycle hooks every environment object shares.
type Base struct {
	model.Object
	role model.Role
}

func newBase(name string, role model.Role) Base {
	return Base{Object: model.NewObject(name), role: role}
}

// Role is the reference role this object satisfies.
func (b *Base) Role() model.Role { return b.role }

func (b *Base) PrepareForModelRun(time.Time) error  { return nil }
func (b *Base) PrepareForModelStep(time.Time) error { return nil }
func (b *Base) PostModelRun() error                 { return nil }
func (b *Base) Validate() []model.Message           { return nil }

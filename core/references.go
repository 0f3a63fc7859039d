package core

import (
	"context"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
	"github.com/signalsfoundry/spill-simulator/model"
	"github.com/signalsfoundry/spill-simulator/weatherers"
)

// Attachment records one reference set during resolution.
type Attachment struct {
	ObjectID   string
	ObjectName string
	Role       model.Role
	TargetID   string
}

// ResolveReport describes everything one resolution pass changed.
type ResolveReport struct {
	Attached []Attachment
	Created  []Weatherer
	Enabled  []Weatherer
	Disabled []Weatherer
}

// Empty reports whether the pass changed nothing.
func (r ResolveReport) Empty() bool {
	return len(r.Attached) == 0 && len(r.Created) == 0 && len(r.Enabled) == 0 && len(r.Disabled) == 0
}

// registry maps each environment role to the first active object claiming
// it.
type registry map[model.Role]Environment

func (m *Model) registry() registry {
	reg := make(registry, len(model.EnvironmentRoles))
	for _, e := range m.environment.Values() {
		if !e.On() {
			continue
		}
		if _, ok := reg[e.Role()]; !ok {
			reg[e.Role()] = e
		}
	}
	return reg
}

func (r registry) wind() *environment.Wind {
	w, _ := r[model.RoleWind].(*environment.Wind)
	return w
}

func (r registry) water() *environment.Water {
	w, _ := r[model.RoleWater].(*environment.Water)
	return w
}

func (r registry) waves() *environment.Waves {
	w, _ := r[model.RoleWaves].(*environment.Waves)
	return w
}

func (r registry) current() *environment.Current {
	c, _ := r[model.RoleCurrent].(*environment.Current)
	return c
}

// ResolveReferences attaches environment objects to everything that needs
// them, has not been wired explicitly and has its own default-reference
// flag set, then inserts, enables or disables
// the default weathering processes the active weatherers depend on. It is
// run by SetupModelRun and can be called on its own to inspect the result.
func (m *Model) ResolveReferences() ResolveReport {
	var report ResolveReport
	reg := m.registry()

	for _, e := range m.environment.Values() {
		if e.On() && e.MakeDefaultRefs() {
			report.Attached = append(report.Attached, attach(e, e.ID(), e.Name(), reg)...)
		}
	}
	for _, mv := range m.movers.Values() {
		if mv.On() && mv.MakeDefaultRefs() {
			report.Attached = append(report.Attached, attach(mv, mv.ID(), mv.Name(), reg)...)
		}
	}
	for _, w := range m.weatherers.Values() {
		if w.On() && w.MakeDefaultRefs() {
			report.Attached = append(report.Attached, attach(w, w.ID(), w.Name(), reg)...)
		}
	}

	m.resolveDefaultWeatherers(reg, &report)

	for _, sc := range m.spills.Items() {
		for _, s := range sc.Spills() {
			if s.On() && s.MakeDefaultRefs() {
				report.Attached = append(report.Attached, attach(s, s.ID(), s.Name(), reg)...)
			}
		}
	}

	if !report.Empty() {
		m.log.Debug(context.Background(), "references resolved",
			logging.Int("attached", len(report.Attached)),
			logging.Int("created", len(report.Created)),
			logging.Int("enabled", len(report.Enabled)),
			logging.Int("disabled", len(report.Disabled)),
		)
	}
	return report
}

// attach fills every unset reference obj exposes from reg.
func attach(obj any, id, name string, reg registry) []Attachment {
	var out []Attachment
	record := func(role model.Role) {
		out = append(out, Attachment{ObjectID: id, ObjectName: name, Role: role, TargetID: reg[role].ID()})
	}
	if r, ok := obj.(WindReferrer); ok && r.Wind() == nil {
		if w := reg.wind(); w != nil {
			r.SetWind(w)
			record(model.RoleWind)
		}
	}
	if r, ok := obj.(WaterReferrer); ok && r.Water() == nil {
		if w := reg.water(); w != nil {
			r.SetWater(w)
			record(model.RoleWater)
		}
	}
	if r, ok := obj.(WavesReferrer); ok && r.Waves() == nil {
		if w := reg.waves(); w != nil {
			r.SetWaves(w)
			record(model.RoleWaves)
		}
	}
	if r, ok := obj.(CurrentReferrer); ok && r.Current() == nil {
		if c := reg.current(); c != nil {
			r.SetCurrent(c)
			record(model.RoleCurrent)
		}
	}
	return out
}

// weatheringNeeds derives which default processes the active, untagged
// weatherers depend on from the arrays they request.
func (m *Model) weatheringNeeds() map[model.Role]bool {
	needs := map[model.Role]bool{}
	for _, w := range m.weatherers.Values() {
		if !w.On() || roleOf(w) != model.RoleNone {
			continue
		}
		for _, at := range w.ArrayTypes() {
			needs[model.RoleMassBalance] = true
			if at.Name == elements.ArrayArea {
				needs[model.RoleSpreading] = true
				needs[model.RoleLangmuir] = true
			}
		}
	}
	return needs
}

func roleOf(w Weatherer) model.Role {
	if rt, ok := w.(RoleTagged); ok {
		return rt.RefAs()
	}
	return model.RoleNone
}

func (m *Model) resolveDefaultWeatherers(reg registry, report *ResolveReport) {
	needs := m.weatheringNeeds()

	existing := map[model.Role][]Weatherer{}
	for _, w := range m.weatherers.Values() {
		if role := roleOf(w); role != model.RoleNone {
			existing[role] = append(existing[role], w)
		}
	}

	for _, role := range []model.Role{model.RoleMassBalance, model.RoleSpreading, model.RoleLangmuir} {
		have := existing[role]
		if !needs[role] {
			for _, w := range have {
				if w.On() {
					w.SetOn(false)
					report.Disabled = append(report.Disabled, w)
				}
			}
			continue
		}
		if len(have) == 0 {
			w := newDefaultWeatherer(role, reg)
			report.Attached = append(report.Attached, defaultAttachments(w, reg)...)
			if err := m.weatherers.Add(w); err != nil {
				m.log.Warn(context.Background(), "could not insert default weatherer",
					logging.String("role", string(role)), logging.Err(err))
				continue
			}
			report.Created = append(report.Created, w)
			continue
		}
		for _, w := range have {
			if w.On() {
				continue
			}
			w.SetOn(true)
			report.Enabled = append(report.Enabled, w)
			if w.MakeDefaultRefs() {
				report.Attached = append(report.Attached, attach(w, w.ID(), w.Name(), reg)...)
			}
		}
	}
}

func newDefaultWeatherer(role model.Role, reg registry) Weatherer {
	switch role {
	case model.RoleSpreading:
		return weatherers.NewFayGravityViscous(reg.water())
	case model.RoleLangmuir:
		return weatherers.NewLangmuir(reg.water(), reg.wind())
	default:
		return weatherers.NewWeatheringData(reg.water())
	}
}

// defaultAttachments lists the references a freshly built default
// weatherer was constructed with.
func defaultAttachments(w Weatherer, reg registry) []Attachment {
	var out []Attachment
	if r, ok := w.(WindReferrer); ok && r.Wind() != nil {
		out = append(out, Attachment{ObjectID: w.ID(), ObjectName: w.Name(), Role: model.RoleWind, TargetID: reg[model.RoleWind].ID()})
	}
	if r, ok := w.(WaterReferrer); ok && r.Water() != nil {
		out = append(out, Attachment{ObjectID: w.ID(), ObjectName: w.Name(), Role: model.RoleWater, TargetID: reg[model.RoleWater].ID()})
	}
	return out
}

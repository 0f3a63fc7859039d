package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
	"github.com/signalsfoundry/spill-simulator/model"
)

// Validate asks every active member of every collection, the map and each
// spill to check itself, and reports environment roles that something
// needs but nothing provides. The bool is false when any message is an
// error.
func (m *Model) Validate() ([]model.Message, bool) {
	var msgs []model.Message

	if m.spillMap != nil {
		msgs = append(msgs, sourced(m.spillMap.Name(), m.spillMap.Validate())...)
	}
	for _, e := range m.environment.Values() {
		if e.On() {
			msgs = append(msgs, sourced(e.Name(), e.Validate())...)
		}
	}
	for _, mv := range m.movers.Values() {
		if mv.On() {
			msgs = append(msgs, sourced(mv.Name(), mv.Validate())...)
		}
	}
	for _, w := range m.weatherers.Values() {
		if w.On() {
			msgs = append(msgs, sourced(w.Name(), w.Validate())...)
		}
	}
	for _, o := range m.outputters.Values() {
		if o.On() {
			msgs = append(msgs, sourced(o.Name(), o.Validate())...)
		}
	}
	for _, s := range m.spills.Spills() {
		if s.On() {
			msgs = append(msgs, sourced(s.Name(), s.Validate())...)
		}
	}
	msgs = append(msgs, m.missingRoles()...)

	return msgs, !model.HasErrors(msgs)
}

func sourced(source string, msgs []model.Message) []model.Message {
	for i := range msgs {
		if msgs[i].Source == "" {
			msgs[i].Source = source
		}
	}
	return msgs
}

// missingRoles reports each role an active environment object, mover or
// weatherer still lacks a reference for while the environment collection
// holds nothing that could provide it. Spills are not counted.
func (m *Model) missingRoles() []model.Message {
	reg := m.registry()
	missing := map[model.Role]bool{}
	check := func(obj any) {
		for _, role := range unsetRoles(obj) {
			if _, ok := reg[role]; !ok {
				missing[role] = true
			}
		}
	}
	for _, e := range m.environment.Values() {
		if e.On() {
			check(e)
		}
	}
	for _, mv := range m.movers.Values() {
		if mv.On() {
			check(mv)
		}
	}
	for _, w := range m.weatherers.Values() {
		if w.On() {
			check(w)
		}
	}

	var msgs []model.Message
	for _, role := range model.EnvironmentRoles {
		if !missing[role] {
			continue
		}
		if m.tolerateMissingRefs {
			msgs = append(msgs, model.Warningf(m.name, "%s not found in environment collection", role))
		} else {
			msgs = append(msgs, model.Errorf(m.name, "%s not found in environment collection", role))
		}
	}
	return msgs
}

func unsetRoles(obj any) []model.Role {
	var roles []model.Role
	if r, ok := obj.(WindReferrer); ok && r.Wind() == nil {
		roles = append(roles, model.RoleWind)
	}
	if r, ok := obj.(WaterReferrer); ok && r.Water() == nil {
		roles = append(roles, model.RoleWater)
	}
	if r, ok := obj.(WavesReferrer); ok && r.Waves() == nil {
		roles = append(roles, model.RoleWaves)
	}
	if r, ok := obj.(CurrentReferrer); ok && r.Current() == nil {
		roles = append(roles, model.RoleCurrent)
	}
	return roles
}

// CheckInputs runs Validate and then the run-level checks: spill release
// windows against the run window, and oil properties against the water.
// The returned error is non-nil only for conditions that make any run
// meaningless; everything else is reported through the messages.
func (m *Model) CheckInputs() ([]model.Message, bool, error) {
	msgs, _ := m.Validate()

	spills := m.spills.Spills()
	if len(spills) == 0 {
		msgs = append(msgs, model.Warningf(m.name, "%s contains no spills", m.name))
	}

	start := m.clock.StartTime()
	end := start.Add(m.clock.Duration())
	var active, afterEnd int
	for _, s := range spills {
		if !s.On() {
			continue
		}
		active++
		switch {
		case s.ReleaseTime.Before(start):
			msgs = append(msgs, model.Errorf(s.Name(),
				"release time %s is before model start time %s", s.ReleaseTime.Format(timeLayout), start.Format(timeLayout)))
		case !s.ReleaseTime.Before(end):
			afterEnd++
			msgs = append(msgs, model.Warningf(s.Name(),
				"release time %s is not before model end time %s", s.ReleaseTime.Format(timeLayout), end.Format(timeLayout)))
		case s.ReleaseTime.After(start):
			msgs = append(msgs, model.Warningf(s.Name(),
				"release time %s is after model start time %s", s.ReleaseTime.Format(timeLayout), start.Format(timeLayout)))
		}
	}
	if active > 0 && afterEnd == active {
		if m.strict {
			msgs = append(msgs, model.Errorf(m.name, "all spills are released after the model run ends"))
		} else {
			msgs = append(msgs, model.Warningf(m.name, "all spills are released after the model run ends"))
		}
	}

	fallback := m.registry().water()
	for _, s := range spills {
		if !s.On() || s.Substance == nil {
			continue
		}
		water := s.Water()
		if water == nil {
			water = fallback
		}
		if water == nil {
			continue
		}
		msg, err := checkOilAgainstWater(s, water)
		if err != nil {
			m.log.Error(context.Background(), "negative buoyancy", logging.String("spill", s.Name()), logging.Err(err))
			return msgs, false, err
		}
		if msg != nil {
			msgs = append(msgs, *msg)
		}
	}

	valid := !model.HasErrors(msgs)
	for _, msg := range msgs {
		fields := []logging.Field{logging.String("source", msg.Source), logging.String("text", msg.Text)}
		if msg.Severity == model.SeverityError {
			m.log.Error(context.Background(), "input check error", fields...)
		} else {
			m.log.Warn(context.Background(), "input check warning", fields...)
		}
	}
	return msgs, valid, nil
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func checkOilAgainstWater(s *elements.Spill, water *environment.Water) (*model.Message, error) {
	t := water.Temperature
	if oil := s.Substance.DensityAt(t); water.Density() < oil {
		return nil, fmt.Errorf("%w: spill %q oil density %.1f kg/m^3 exceeds water density %.1f kg/m^3 at %.2f K",
			ErrNegativeBuoyancy, s.Name(), oil, water.Density(), t)
	}
	if s.Substance.PourPoint > 0 && t < s.Substance.PourPoint {
		msg := model.Warningf(s.Name(), "water temperature %.2f K is below the pour point %.2f K of %s",
			t, s.Substance.PourPoint, s.Substance.Name)
		return &msg, nil
	}
	return nil, nil
}

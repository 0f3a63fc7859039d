package model

import "github.com/google/uuid"

// Object carries the identity and participation flags shared by every
// simulation object (movers, weatherers, environment objects, outputters
// and spills). Embed it by value.
type Object struct {
	id              string
	name            string
	on              bool
	makeDefaultRefs bool
}

// NewObject returns an enabled object with a fresh ID that opts into
// default references.
func NewObject(name string) Object {
	return Object{id: uuid.NewString(), name: name, on: true, makeDefaultRefs: true}
}

func (o *Object) ID() string { return o.id }

// SetID overrides the generated ID, typically from a scenario file.
func (o *Object) SetID(id string) { o.id = id }

func (o *Object) Name() string        { return o.name }
func (o *Object) SetName(name string) { o.name = name }

// On reports whether the object participates in the current run.
func (o *Object) On() bool      { return o.on }
func (o *Object) SetOn(on bool) { o.on = on }

// MakeDefaultRefs reports whether unset references may be filled in from
// the environment collection.
func (o *Object) MakeDefaultRefs() bool        { return o.makeDefaultRefs }
func (o *Object) SetMakeDefaultRefs(flag bool) { o.makeDefaultRefs = flag }

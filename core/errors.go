package core

import (
	"errors"
	"strings"

	"github.com/signalsfoundry/spill-simulator/model"
)

var (
	// ErrRunComplete signals that the last step has been taken. It is not a
	// failure.
	ErrRunComplete = errors.New("model run complete")
	// ErrInvalidModel indicates the configuration failed its input checks.
	ErrInvalidModel = errors.New("invalid model configuration")
	// ErrNegativeBuoyancy indicates oil denser than the water it is spilled
	// into.
	ErrNegativeBuoyancy = errors.New("oil is denser than water")
	// ErrInvalidMode indicates an unknown model mode.
	ErrInvalidMode = errors.New("invalid model mode")
	// ErrUnknownObject indicates an ID not held by the model.
	ErrUnknownObject = errors.New("object not in model")
	// ErrNoUncertainData is returned when uncertain element data is
	// requested from a model without an uncertain realization.
	ErrNoUncertainData = errors.New("model has no uncertain realization")
)

// ValidationError carries the messages that made a configuration invalid.
type ValidationError struct {
	Messages []model.Message
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, m := range e.Messages {
		if m.Severity == model.SeverityError {
			parts = append(parts, m.String())
		}
	}
	if len(parts) == 0 {
		return ErrInvalidModel.Error()
	}
	return ErrInvalidModel.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidModel }

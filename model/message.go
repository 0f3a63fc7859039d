package model

import "fmt"

// Severity classifies a validation message.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Message is a single validation finding produced by an object's self
// check or by the engine's input checks.
type Message struct {
	Severity Severity
	Source   string
	Text     string
}

// Warningf builds a warning-level message.
func Warningf(source, format string, args ...any) Message {
	return Message{Severity: SeverityWarning, Source: source, Text: fmt.Sprintf(format, args...)}
}

// Errorf builds an error-level message.
func Errorf(source, format string, args ...any) Message {
	return Message{Severity: SeverityError, Source: source, Text: fmt.Sprintf(format, args...)}
}

func (m Message) String() string {
	if m.Source == "" {
		return fmt.Sprintf("%s: %s", m.Severity, m.Text)
	}
	return fmt.Sprintf("%s: %s: %s", m.Severity, m.Source, m.Text)
}

// HasErrors reports whether any message is error-level.
func HasErrors(msgs []Message) bool {
	for _, m := range msgs {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

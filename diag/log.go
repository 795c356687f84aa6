// Package diag provides the Log used to accumulate informational messages
// and warnings produced while building or transforming a program, adapted
// from the teacher's refactoring.Log: the same Severity levels and entry
// accumulation, trimmed of the Go-source-position machinery (go/token,
// go/loader) that has no analogue in the bril IR, where a position is just
// an optional opaque "pos" field already carried on the instruction.
package diag

import (
	"bytes"
	"fmt"
)

// Severity indicates whether a log entry is informational, a warning, or
// an error.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return ""
	case Warning:
		return "Warning: "
	case Error:
		return "Error: "
	default:
		return ""
	}
}

// Entry is a single log entry: a severity and a message, optionally
// associated with a function name for context.
type Entry struct {
	Severity Severity
	Message  string
	Function string
}

func (e *Entry) String() string {
	var buf bytes.Buffer
	buf.WriteString(e.Severity.String())
	if e.Function != "" {
		buf.WriteString(e.Function)
		buf.WriteString(": ")
	}
	buf.WriteString(e.Message)
	return buf.String()
}

// Log accumulates diagnostic entries produced while building or
// transforming a program.
type Log struct {
	Entries []*Entry
}

// NewLog returns a new, empty Log.
func NewLog() *Log { return &Log{} }

func (l *Log) log(severity Severity, function, format string, v ...interface{}) {
	l.Entries = append(l.Entries, &Entry{
		Severity: severity,
		Message:  fmt.Sprintf(format, v...),
		Function: function,
	})
}

// Infof adds an informational entry.
func (l *Log) Infof(function, format string, v ...interface{}) { l.log(Info, function, format, v...) }

// Warnf adds a warning entry.
func (l *Log) Warnf(function, format string, v ...interface{}) { l.log(Warning, function, format, v...) }

// Errorf adds an error entry.
func (l *Log) Errorf(function, format string, v ...interface{}) { l.log(Error, function, format, v...) }

// ContainsErrors reports whether the log contains at least one Error entry.
func (l *Log) ContainsErrors() bool {
	for _, e := range l.Entries {
		if e.Severity >= Error {
			return true
		}
	}
	return false
}

func (l *Log) String() string {
	var buf bytes.Buffer
	for _, e := range l.Entries {
		buf.WriteString(e.String())
		buf.WriteString("\n")
	}
	return buf.String()
}

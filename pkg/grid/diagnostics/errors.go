// Package diagnostics provides the structured logger and the centralized error
// reporting path shared by every grid component.
package diagnostics

import (
	"fmt"
	"time"
)

// Kind identifies the category of an error.
type Kind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConstruction indicates a bad or duplicate handle wiring. It aborts bootstrap.
	KindConstruction
	// KindRegistration indicates a rejected stage registration.
	KindRegistration
	// KindExecution indicates a stage failure during a pipeline run.
	KindExecution
	// KindTeardown indicates an operation invoked after the grid was disposed.
	KindTeardown
	// KindConfig indicates an invalid configuration.
	KindConfig
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindConstruction:
		return "construction"
	case KindRegistration:
		return "registration"
	case KindExecution:
		return "execution"
	case KindTeardown:
		return "teardown"
	case KindConfig:
		return "config"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// GridError is a structured error reported through the diagnostics channel.
type GridError struct {
	// Op is the operation that failed (e.g., "bootstrap.state").
	Op string
	// Kind categorizes the error.
	Kind Kind
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the report, verbose channels only.
	StackTrace string
	// Timestamp is when the error was reported.
	Timestamp time.Time
}

func (e *GridError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *GridError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives the errors reported by the grid.
type ErrorHandler interface {
	HandleError(err *GridError)
}

// HandlerFunc adapts a function to ErrorHandler.
type HandlerFunc func(err *GridError)

// HandleError calls f(err).
func (f HandlerFunc) HandleError(err *GridError) {
	f(err)
}

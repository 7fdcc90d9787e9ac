// Package errors provides structured error handling for reactbind.
//
// Failures raised by lifecycle callbacks and render passes are contained at
// the phase boundary and converted into [PhaseError] values, which are
// delivered to the global [ErrorHandler]. Errors from directly-called
// operations (cell reads and writes, the update gate, event emission) are
// returned to the caller as ordinary Go errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindLifecycle indicates a lifecycle callback failure.
	KindLifecycle
	// KindRender indicates a render pass failure.
	KindRender
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindDeclaration indicates misuse of a state declaration.
	KindDeclaration
	// KindEmit indicates a failed event emission.
	KindEmit
	// KindReentrant indicates a re-entrant render of the same instance.
	KindReentrant
	// KindTransition indicates a phase entered out of order.
	KindTransition
)

func (k ErrorKind) String() string {
	switch k {
	case KindLifecycle:
		return "lifecycle"
	case KindRender:
		return "render"
	case KindPanic:
		return "panic"
	case KindDeclaration:
		return "declaration"
	case KindEmit:
		return "emit"
	case KindReentrant:
		return "reentrant"
	case KindTransition:
		return "transition"
	default:
		return "unknown"
	}
}

var (
	// ErrReentrantRender is returned when an instance is rendered while it
	// is already rendering.
	ErrReentrantRender = stderrors.New("re-entrant render")
	// ErrInvalidTransition is returned when a lifecycle phase is entered
	// from a state that does not allow it.
	ErrInvalidTransition = stderrors.New("invalid lifecycle transition")
	// ErrNoHandler is returned by Emit when the event prop is absent.
	ErrNoHandler = stderrors.New("no event handler")
	// ErrReleased is returned when operating on a torn-down instance.
	ErrReleased = stderrors.New("component released")
)

// New, Is, As and Join forward to the standard library so callers need a
// single errors import.
func New(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// PhaseError describes a failure contained at a lifecycle phase boundary.
type PhaseError struct {
	// Phase is the lifecycle phase that failed (e.g., "will_mount").
	Phase string
	// Component is the failing instance's identifier.
	Component string
	// Type is the component type name.
	Type string
	// Callback names the failing callback, empty for render failures.
	Callback string
	// Kind categorizes the error.
	Kind ErrorKind
	// Recovered is the panic value (nil for returned errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack for recovered panics.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *PhaseError) Error() string {
	where := e.Type + "." + e.Phase
	if e.Callback != "" {
		where += "(" + e.Callback + ")"
	}
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s [%s]: %v", where, e.Component, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s in %s [%s]: %v", e.Kind, where, e.Component, e.Err)
	}
	return fmt.Sprintf("unknown error in %s [%s]", where, e.Component)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic outside a lifecycle phase.
type PanicError struct {
	// Op is the operation that panicked (e.g., "scenario.Run").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by reactbind.
type ErrorHandler interface {
	// HandlePhaseError is called once per contained lifecycle failure.
	HandlePhaseError(err *PhaseError)
	// HandlePanic is called when a panic is recovered outside a phase.
	HandlePanic(err *PanicError)
}

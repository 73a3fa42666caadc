// Package errors provides structured error handling for the screen manager.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownScreen is matched by errors.Is for every unknown-screen failure.
var ErrUnknownScreen = errors.New("screen is not known")

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindUnknownScreen indicates a name with no resolvable definition.
	KindUnknownScreen
	// KindCallback indicates a screen construction callback returned an error.
	KindCallback
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindEvaluate indicates a modal or zorder expression failed to evaluate.
	KindEvaluate
	// KindPersist indicates a snapshot could not be encoded or restored.
	KindPersist
	// KindConfig indicates invalid configuration.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownScreen:
		return "unknown-screen"
	case KindCallback:
		return "callback"
	case KindPanic:
		return "panic"
	case KindEvaluate:
		return "evaluate"
	case KindPersist:
		return "persist"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ScreenError represents a structured error raised while managing a screen.
type ScreenError struct {
	// Op is the operation that failed (e.g., "screen.Show").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Screen is the space-joined screen name, if known.
	Screen string
	// Err is the underlying error.
	Err error
	// Recovered is the panic value for KindPanic errors.
	Recovered any
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *ScreenError) Error() string {
	cause := e.cause()
	if e.Screen != "" {
		return fmt.Sprintf("%s [%s] screen=%s: %s", e.Op, e.Kind, e.Screen, cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, cause)
}

func (e *ScreenError) cause() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Recovered != nil:
		return fmt.Sprintf("panic: %v", e.Recovered)
	default:
		return "no cause recorded"
	}
}

func (e *ScreenError) Unwrap() error {
	return e.Err
}

// UnknownScreen builds the error returned when name has no definition.
func UnknownScreen(op string, name []string) *ScreenError {
	return &ScreenError{
		Op:        op,
		Kind:      KindUnknownScreen,
		Screen:    strings.Join(name, " "),
		Err:       ErrUnknownScreen,
		Timestamp: time.Now(),
	}
}

// PanicError represents a recovered panic outside of a screen callback.
type PanicError struct {
	// Op is the operation that panicked (e.g., "layers.Dispatch").
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

// Is reports whether err is a ScreenError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var se *ScreenError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// ErrorHandler receives errors reported by the screen manager.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *ScreenError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}

// As returns the ScreenError in err's chain, if any.
func As(err error) (*ScreenError, bool) {
	var se *ScreenError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

package cqs

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistrySealed is returned when registering after an executor was built.
	ErrRegistrySealed = errors.New("handler registry is sealed")
	// ErrNilExecutionContext is returned when Explicit was given a nil context.
	ErrNilExecutionContext = errors.New("explicit execution context is nil")
	// ErrZeroExecutionDate is returned when an explicit context has no
	// ExecutionDate.
	ErrZeroExecutionDate = errors.New("explicit execution context has no execution date")
	// ErrNilRequest is returned when a nil query or command is executed.
	ErrNilRequest = errors.New("request is nil")
)

// HandlerNotFoundError reports a request type with no registered handler. It
// is a programming error and is detectable at startup with Registry.Validate.
type HandlerNotFoundError struct {
	Kind Kind
	Name string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no %s handler registered for %q", e.Kind, e.Name)
}

// DuplicateHandlerError reports a second registration for one request type.
type DuplicateHandlerError struct {
	Kind Kind
	Name string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("%s handler already registered for %q", e.Kind, e.Name)
}

// ResultTypeError reports a handler result that does not match the type the
// request is bound to.
type ResultTypeError struct {
	Name string
	Want string
	Got  string
}

func (e *ResultTypeError) Error() string {
	return fmt.Sprintf("handler for %q returned %s, want %s", e.Name, e.Got, e.Want)
}

// PanicError wraps a panic recovered from a handler.
type PanicError struct {
	Name  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for %q panicked: %v", e.Name, e.Value)
}

// IsHandlerNotFound reports whether err is or wraps a HandlerNotFoundError.
func IsHandlerNotFound(err error) bool {
	var target *HandlerNotFoundError
	return errors.As(err, &target)
}

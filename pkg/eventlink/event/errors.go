package event

import (
	"fmt"
)

// ValidationError reports a missing or malformed event attribute.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Message)
}

// SerializationError is returned by Publish when an event or its envelope
// cannot be encoded. It is never retried.
type SerializationError struct {
	EventType string
	EventID   string
	Err       error
}

// Error implements error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize event %s (%s): %v", e.EventType, e.EventID, e.Err)
}

// Unwrap returns the underlying error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// DeserializationError reports an inbound message that could not be decoded.
type DeserializationError struct {
	Channel   string
	EventType string // empty when the envelope itself failed to parse
	Message   string
	Err       error
}

// Error implements error interface.
func (e *DeserializationError) Error() string {
	target := "envelope"
	if e.EventType != "" {
		target = "payload of " + e.EventType
	}
	if e.Err != nil {
		return fmt.Sprintf("decode %s on %s: %s: %v", target, e.Channel, e.Message, e.Err)
	}
	return fmt.Sprintf("decode %s on %s: %s", target, e.Channel, e.Message)
}

// Unwrap returns the underlying error.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// UnknownEventTypeError reports an inbound tag this process cannot handle.
// NoHandlers is set when the tag is cataloged but nothing subscribes to it.
type UnknownEventTypeError struct {
	EventType  string
	NoHandlers bool
}

// Error implements error interface.
func (e *UnknownEventTypeError) Error() string {
	if e.NoHandlers {
		return fmt.Sprintf("no handlers registered for event type %q", e.EventType)
	}
	return fmt.Sprintf("unknown event type %q", e.EventType)
}

// HandlerExecutionError wraps a failure raised by a single handler.
type HandlerExecutionError struct {
	EventID   string
	EventType string
	Handler   string
	Panicked  bool
	Err       error
}

// Error implements error interface.
func (e *HandlerExecutionError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("handler %s panicked on %s (%s): %v", e.Handler, e.EventType, e.EventID, e.Err)
	}
	return fmt.Sprintf("handler %s failed on %s (%s): %v", e.Handler, e.EventType, e.EventID, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// RegistryError reports a handler that cannot be registered.
type RegistryError struct {
	Handler   string
	EventType string
	Message   string
}

// Error implements error interface.
func (e *RegistryError) Error() string {
	return fmt.Sprintf("register %s for %q: %s", e.Handler, e.EventType, e.Message)
}

// Package errors provides domain-specific error types and sentinel errors
// for webhook event handling.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrUnrecognizedContentKind indicates a message content kind the router does not handle.
	ErrUnrecognizedContentKind = errors.New("unrecognized message content kind")

	// ErrMalformedPostbackData indicates postback data that is not URL-encoded key/value form.
	ErrMalformedPostbackData = errors.New("malformed postback data")

	// ErrDeliveryFailure indicates the messaging API rejected an outbound reply or push.
	ErrDeliveryFailure = errors.New("message delivery failed")

	// ErrTransportRejected indicates an inbound request failed signature verification.
	ErrTransportRejected = errors.New("webhook request rejected")
)

// UnrecognizedContentKindError carries the content kind that could not be routed.
type UnrecognizedContentKindError struct {
	Kind string
}

func (e *UnrecognizedContentKindError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnrecognizedContentKind, e.Kind)
}

// Is reports whether target is ErrUnrecognizedContentKind.
func (e *UnrecognizedContentKindError) Is(target error) bool {
	return target == ErrUnrecognizedContentKind
}

// NewUnrecognizedContentKindError creates a new unrecognized content kind error.
func NewUnrecognizedContentKindError(kind string) *UnrecognizedContentKindError {
	return &UnrecognizedContentKindError{Kind: kind}
}

// PostbackDataError wraps a postback parse failure.
type PostbackDataError struct {
	Data string
	Err  error
}

func (e *PostbackDataError) Error() string {
	return fmt.Sprintf("%v (data=%q): %v", ErrMalformedPostbackData, e.Data, e.Err)
}

func (e *PostbackDataError) Unwrap() []error {
	return []error{ErrMalformedPostbackData, e.Err}
}

// NewPostbackDataError creates a new postback data error.
func NewPostbackDataError(data string, err error) *PostbackDataError {
	return &PostbackDataError{
		Data: data,
		Err:  err,
	}
}

// DeliveryError represents a failed messaging API call for one event.
type DeliveryError struct {
	EventType string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%v (event=%s): %v", ErrDeliveryFailure, e.EventType, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailure, e.Err}
}

// NewDeliveryError creates a new delivery error.
func NewDeliveryError(eventType string, err error) *DeliveryError {
	return &DeliveryError{
		EventType: eventType,
		Err:       err,
	}
}

// ValidationError represents configuration or catalog validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/callq/internal/queue"
)

// RuntimeError represents an error detected while scheduling a call or
// draining a command queue.
//
// RuntimeError includes structured fields for diagnostics. Err, when set, is
// the underlying cause and is reachable through errors.Is / errors.As.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RequestID identifies the affected call.
	RequestID string

	// Command names the command being enqueued or executed, if any.
	Command string

	// Sequence is the command's position in its response queue (-1 if none).
	Sequence int

	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQueueOverflow indicates a push beyond a queue's capacity.
	ErrCodeQueueOverflow RuntimeErrorCode = "QUEUE_OVERFLOW"

	// ErrCodeUnknownCommand indicates a dispatch table miss.
	ErrCodeUnknownCommand RuntimeErrorCode = "UNKNOWN_COMMAND"

	// ErrCodeHandlerFailed indicates a command handler returned an error or panicked.
	ErrCodeHandlerFailed RuntimeErrorCode = "HANDLER_FAILED"

	// ErrCodeTransportFailed indicates a non-success reply or a network failure.
	ErrCodeTransportFailed RuntimeErrorCode = "TRANSPORT_FAILED"

	// ErrCodeRedirect indicates a redirect status class.
	ErrCodeRedirect RuntimeErrorCode = "REDIRECT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RequestID != "" && e.Command != "" {
		msg = fmt.Sprintf("%s (request=%s, command=%s#%d)", msg, e.RequestID, e.Command, e.Sequence)
	} else if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request=%s)", msg, e.RequestID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsOverflowError returns true if err is a queue overflow, either as a
// RuntimeError or a bare queue.OverflowError.
func IsOverflowError(err error) bool {
	return hasCode(err, ErrCodeQueueOverflow) || errors.Is(err, queue.ErrOverflow)
}

// IsHandlerError returns true if err reports a failed command handler.
func IsHandlerError(err error) bool {
	return hasCode(err, ErrCodeHandlerFailed)
}

// IsUnknownCommand returns true if err reports a dispatch table miss.
func IsUnknownCommand(err error) bool {
	return hasCode(err, ErrCodeUnknownCommand)
}

// IsTransportError returns true if err reports a failed or non-success call.
func IsTransportError(err error) bool {
	return hasCode(err, ErrCodeTransportFailed)
}

// NewOverflowError wraps a queue overflow raised while enqueueing for a call.
func NewOverflowError(requestID, command string, seq int, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeQueueOverflow,
		Message:   "queue capacity exceeded",
		RequestID: requestID,
		Command:   command,
		Sequence:  seq,
		Err:       err,
	}
}

// NewHandlerError wraps a failure raised by a command handler.
func NewHandlerError(cmd *Command, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeHandlerFailed,
		Message:   "command handler failed",
		RequestID: cmd.requestID(),
		Command:   cmd.Name,
		Sequence:  cmd.Sequence,
		Err:       err,
	}
}

// NewUnknownCommandError reports a dispatch table miss.
func NewUnknownCommandError(name string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeUnknownCommand,
		Message:  fmt.Sprintf("no handler registered for %q", name),
		Command:  name,
		Sequence: -1,
	}
}

// NewTransportError reports a failed call.
func NewTransportError(requestID string, status int, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeTransportFailed,
		Message:   fmt.Sprintf("call failed (status=%d)", status),
		RequestID: requestID,
		Sequence:  -1,
		Err:       err,
	}
}

// NewRedirectError records that a call ended in a redirect to location.
func NewRedirectError(requestID string, status int, location string) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeRedirect,
		Message:   fmt.Sprintf("redirected (status=%d) to %q", status, location),
		RequestID: requestID,
		Sequence:  -1,
	}
}

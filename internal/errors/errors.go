// Package errors provides centralized error definitions and error handling utilities
// for the NT call bridge. It defines the call failure taxonomy, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a single bridged call or of the
// bus adapter that carries it:
//   - CallError: a call that ended in a terminal failure state (timeout, host
//     rejection, cancellation, emit failure)
//   - BusError: the in-process bus adapter refused to carry a request
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or configuration
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewCallError(errors.KindTimeout, "nodeIKernelGroupService/kickMember").
//	    WithArgs(args).
//	    WithChannel("IPC_UP_2")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrTimeout) { ... }
//
//	var callErr *errors.CallError
//	if errors.As(err, &callErr) {
//	    log.Println(callErr.Method, callErr.HostMessage)
//	}
//
// # Error Classification
//
// Retry policy belongs to callers; the bridge never retries. [IsRetryable]
// reports timeouts and emit failures as transient, host rejections as final.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Call-related sentinel errors
var (
	// ErrTimeout indicates that a call's deadline elapsed with no terminal reply.
	ErrTimeout = New("nt call timed out")
	// ErrHostRejected indicates that the host acknowledged a two-phase call with a failure.
	ErrHostRejected = New("nt call rejected by host")
	// ErrCanceled indicates that a call was canceled before it settled.
	ErrCanceled = New("nt call canceled")
	// ErrEmitFailed indicates that the request could not be handed to the bus.
	ErrEmitFailed = New("nt call emit failed")
)

// Bus-related sentinel errors
var (
	// ErrBusClosed indicates that the bus adapter is not running.
	ErrBusClosed = New("bus is closed")
	// ErrQueueFull indicates that a channel queue has no room for another request.
	ErrQueueFull = New("bus channel queue is full")
	// ErrUnknownChannel indicates a request addressed to a channel the bus does not carry.
	ErrUnknownChannel = New("unknown bus channel")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// BridgeError is the base interface for the errors defined in this package.
type BridgeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Call Errors
// -----------------------------------------------------------------------------

// Kind classifies how a call failed.
type Kind string

// Call failure kinds.
const (
	KindTimeout      Kind = "timeout"
	KindHostRejected Kind = "host_rejected"
	KindCanceled     Kind = "canceled"
	KindEmitFailed   Kind = "emit_failed"
)

// sentinel maps a Kind to the sentinel error that CallError unwraps to.
func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindHostRejected:
		return ErrHostRejected
	case KindCanceled:
		return ErrCanceled
	case KindEmitFailed:
		return ErrEmitFailed
	default:
		return nil
	}
}

// CallError describes a bridged call that reached a failure state. It carries
// the method, arguments and addressing of the call for diagnosis.
//
// Example:
//
//	err := errors.NewCallError(errors.KindHostRejected, "nodeIKernelMsgService/recallMsg").
//	    WithHostMessage("msg not found")
//	fmt.Println(err) // "nt call failed [method=nodeIKernelMsgService/recallMsg]: host rejected: msg not found"
type CallError struct {
	baseError
	Kind        Kind
	CallID      string
	Method      string
	Args        []any
	Channel     string
	EventName   string
	HostMessage string
}

// NewCallError creates a CallError of the given kind for method.
func NewCallError(kind Kind, method string) *CallError {
	e := &CallError{
		baseError: baseError{
			severity:  SeverityError,
			retryable: kind == KindTimeout || kind == KindEmitFailed,
		},
		Kind:   kind,
		Method: method,
	}
	switch kind {
	case KindTimeout:
		e.message = "timed out"
		e.severity = SeverityWarning
	case KindHostRejected:
		e.message = "host rejected"
	case KindCanceled:
		e.message = "canceled"
		e.severity = SeverityInfo
	case KindEmitFailed:
		e.message = "emit failed"
	default:
		e.message = string(kind)
	}
	return e
}

// WithCallID adds the correlation id to the error context.
func (e *CallError) WithCallID(id string) *CallError {
	e.CallID = id
	return e
}

// WithArgs records the positional arguments of the failed call.
func (e *CallError) WithArgs(args []any) *CallError {
	e.Args = args
	return e
}

// WithChannel records the bus channel the request was emitted on.
func (e *CallError) WithChannel(channel string) *CallError {
	e.Channel = channel
	return e
}

// WithEventName records the derived request event name.
func (e *CallError) WithEventName(name string) *CallError {
	e.EventName = name
	return e
}

// WithHostMessage records the failure message supplied by the host.
func (e *CallError) WithHostMessage(msg string) *CallError {
	e.HostMessage = msg
	return e
}

// WithCause sets the underlying cause.
func (e *CallError) WithCause(cause error) *CallError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *CallError) Error() string {
	var parts []string
	if e.Method != "" {
		parts = append(parts, fmt.Sprintf("method=%s", e.Method))
	}
	if e.Channel != "" {
		parts = append(parts, fmt.Sprintf("channel=%s", e.Channel))
	}
	if e.EventName != "" {
		parts = append(parts, fmt.Sprintf("event=%s", e.EventName))
	}
	if len(e.Args) > 0 {
		parts = append(parts, fmt.Sprintf("args=%v", e.Args))
	}

	prefix := "nt call failed"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("nt call failed [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.HostMessage != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.HostMessage)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is reports whether target is another *CallError, the sentinel for this
// error's kind, or matches the wrapped cause.
func (e *CallError) Is(target error) bool {
	if _, ok := target.(*CallError); ok {
		return true
	}
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Bus Errors
// -----------------------------------------------------------------------------

// BusError represents a request the bus adapter refused to carry.
//
// Example:
//
//	err := errors.NewBusError("emit", errors.ErrQueueFull).WithChannel("IPC_UP_2")
type BusError struct {
	baseError
	Op      string
	Channel string
}

// NewBusError creates a new BusError for the named operation.
func NewBusError(op string, cause error) *BusError {
	return &BusError{
		baseError: baseError{
			message:   op,
			cause:     cause,
			severity:  SeverityError,
			retryable: errors.Is(cause, ErrQueueFull),
		},
		Op: op,
	}
}

// WithChannel adds the channel to the error context.
func (e *BusError) WithChannel(channel string) *BusError {
	e.Channel = channel
	return e
}

// Error returns the formatted error message.
func (e *BusError) Error() string {
	prefix := "bus error"
	if e.Channel != "" {
		prefix = fmt.Sprintf("bus error [channel=%s]", e.Channel)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *BusError) Is(target error) bool {
	if _, ok := target.(*BusError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or configuration.
//
// Example:
//
//	err := errors.NewValidationError("must be positive").
//	    WithField("bridge.default_timeout_ms").
//	    WithValue(-1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityError,
		},
	}
}

// WithField sets the field that failed validation.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the invalid value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.message, e.Value)
	}
	return e.message
}

// Is matches other validation errors and ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes the individual validation errors to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, v := range e {
		errs[i] = v
	}
	return errs
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsTimeout reports whether err is a call that ran past its deadline.
func IsTimeout(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// IsHostRejected reports whether err is a call the host refused at ack time.
func IsHostRejected(err error) bool {
	return err != nil && Is(err, ErrHostRejected)
}

// IsRetryable returns true if the error is transient and the operation may
// succeed on retry:
//   - Errors implementing BridgeError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrQueueFull
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrQueueFull)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BridgeError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to decode reply")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

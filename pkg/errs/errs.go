// Package errs defines the error kinds reported by browser tools and the
// structured payload they are rendered into.
package errs

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/playwright-community/playwright-go"
)

// Code identifies the kind of a failure. Codes are stable and part of the
// tool result contract.
type Code string

// Session-state errors.
const (
	CodeAlreadyStarted  Code = "ALREADY_STARTED"
	CodeStartInProgress Code = "START_IN_PROGRESS"
	CodeNoActiveSession Code = "NO_ACTIVE_SESSION"
)

// Driver and hook errors.
const (
	CodeLaunchFailed       Code = "LAUNCH_FAILED"
	CodeHookSetupFailed    Code = "HOOK_SETUP_FAILED"
	CodeHookTeardownFailed Code = "HOOK_TEARDOWN_FAILED"
)

// Navigation and query errors.
const (
	CodeNavigationTimeout      Code = "NAVIGATION_TIMEOUT"
	CodeNavigationBlocked      Code = "NAVIGATION_BLOCKED"
	CodeElementNotFound        Code = "ELEMENT_NOT_FOUND"
	CodeQueryTimeout           Code = "QUERY_TIMEOUT"
	CodeStyleDomainUnavailable Code = "STYLE_DOMAIN_UNAVAILABLE"
)

// Input and catch-all errors.
const (
	CodeShorthandUnsupported Code = "SHORTHAND_UNSUPPORTED"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeUnexpected           Code = "UNEXPECTED_ERROR"
)

// Error is a classified failure.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// With attaches a detail entry and returns the receiver.
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code carried by err, or CodeUnexpected when err is not
// an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnexpected
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// timeoutPattern matches the driver's own phrasing only; a bare "timeout"
// would also hit URLs echoed back in the message.
var timeoutPattern = regexp.MustCompile(`(?i)(timeout \d+ms exceeded|\btimed out\b|ERR_TIMED_OUT)`)

// IsTimeout reports whether err represents an exhausted deadline. Driver
// errors do not always wrap a sentinel, so the message is inspected as well.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, playwright.ErrTimeout) {
		return true
	}
	return timeoutPattern.MatchString(err.Error())
}

// Classify maps a raw failure to an *Error. Already classified errors are
// returned unchanged; timeouts become timeoutCode; everything else becomes
// CodeUnexpected with the original text kept as the cause.
func Classify(err error, timeoutCode Code, action string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if IsTimeout(err) {
		return Wrap(timeoutCode, err, "%s timed out", action)
	}
	return Wrap(CodeUnexpected, err, "%s failed", action)
}

// Body is the inner object of a structured error result.
type Body struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Payload is the wire shape of a failed tool call.
type Payload struct {
	Error Body `json:"error"`
}

// ToPayload renders err as a structured error result. Foreign errors are
// reported as CodeUnexpected with their text under details.cause.
func ToPayload(err error) Payload {
	var e *Error
	if !errors.As(err, &e) {
		return Payload{Error: Body{
			Code:    CodeUnexpected,
			Message: "unexpected error",
			Details: map[string]interface{}{"cause": err.Error()},
		}}
	}

	body := Body{Code: e.Code, Message: e.Message}
	if len(e.Details) > 0 || e.Err != nil {
		body.Details = make(map[string]interface{}, len(e.Details)+1)
		for k, v := range e.Details {
			body.Details[k] = v
		}
		if e.Err != nil {
			if _, ok := body.Details["cause"]; !ok {
				body.Details["cause"] = e.Err.Error()
			}
		}
	}
	return Payload{Error: body}
}

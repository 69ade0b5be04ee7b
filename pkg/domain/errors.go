package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoRoute is returned by resolvers when a resource matches no route.
var ErrNoRoute = errors.New("no route matches resource")

// ErrInvalidScriptVersion is the cause of every call on a script with an unknown version.
var ErrInvalidScriptVersion = errors.New("invalid script version")

// Code is the machine-readable error code.
type Code string

const (
	// Configuration errors.
	CodeMissingRoute    Code = "missing_route"
	CodeMissingFragment Code = "missing_fragment"
	CodeInvalidSlots    Code = "invalid_slots"
	CodeInvalidMap      Code = "invalid_map"

	// Load errors.
	CodeLoadScript      Code = "load_script"
	CodeTimeOut         Code = "time_out"
	CodeInvalidScript   Code = "invalid_script"
	CodeElementNotFound Code = "element_not_found"

	// Lifecycle call errors.
	CodeHydrate       Code = "hydrate"
	CodeRender        Code = "render"
	CodeUnmount       Code = "unmount"
	CodeOnStateChange Code = "on_state_change"

	// State machine misuse.
	CodeOverwriteExisting Code = "overwrite_existing"
	CodeNotFinished       Code = "not_finished"
	CodeInvalidTransition Code = "invalid_transition"
)

// Stage names the part of the engine an error originated in.
type Stage string

const (
	StageSetup       Stage = "setup"
	StageReconcile   Stage = "reconcile"
	StageLoadScript  Stage = "load_script"
	StageMount       Stage = "mount"
	StageUpdate      Stage = "update"
	StageUnmount     Stage = "unmount"
	StageStateChange Stage = "state_change"
)

// Error is the error type reported by every stage of the engine.
type Error struct {
	Stage       Stage
	Slot        string
	Fragment    string
	Level       Level
	Code        Code
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Slot != "" {
		fmt.Fprintf(&b, " slot=%q", e.Slot)
	}
	if e.Fragment != "" {
		fmt.Fprintf(&b, " fragment=%q", e.Fragment)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, &Error{Code: CodeTimeOut}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// ConfigError builds a non-recoverable configuration error.
func ConfigError(code Code, format string, args ...any) *Error {
	return &Error{
		Stage: StageReconcile,
		Level: LevelFatal,
		Code:  code,
		Err:   fmt.Errorf(format, args...),
	}
}

// MisuseError builds a non-recoverable state machine misuse error.
func MisuseError(code Code, slot, fragment string, format string, args ...any) *Error {
	return &Error{
		Stage:    StageStateChange,
		Slot:     slot,
		Fragment: fragment,
		Level:    LevelFatal,
		Code:     code,
		Err:      fmt.Errorf(format, args...),
	}
}

// AsError unwraps err into a *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRecoverable reports whether err may be absorbed at the fragment level.
// Errors that are not *Error are treated as non-recoverable.
func IsRecoverable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Recoverable
}

// CodeOf returns the code carried by err, or "" if it carries none.
func CodeOf(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

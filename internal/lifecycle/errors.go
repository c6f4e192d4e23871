package lifecycle

import (
	"fmt"
)

type Code string

const (
	CodeConflict          Code = "conflict"
	CodeAuthorization     Code = "authorization"
	CodeNotFound          Code = "not_found"
	CodeInconsistentState Code = "inconsistent_state"
	CodeInvalid           Code = "invalid"
)

// Error is the single error type the engine surfaces. ItemID names the
// conflicting item for duplicate submissions so callers can edit it instead.
type Error struct {
	Code    Code
	Message string
	ItemID  int64
}

func (e *Error) Error() string {
	if e.ItemID != 0 {
		return fmt.Sprintf("%s: %s (item %d)", e.Code, e.Message, e.ItemID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so callers can use errors.Is(err, lifecycle.ErrConflict).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrAuthorization     = &Error{Code: CodeAuthorization, Message: "not authorized"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInconsistentState = &Error{Code: CodeInconsistentState, Message: "inconsistent state"}
	ErrInvalid           = &Error{Code: CodeInvalid, Message: "invalid"}
)

func Conflictf(itemID int64, format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...), ItemID: itemID}
}

func Unauthorizedf(format string, args ...any) *Error {
	return &Error{Code: CodeAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Inconsistentf(itemID int64, format string, args ...any) *Error {
	return &Error{Code: CodeInconsistentState, Message: fmt.Sprintf(format, args...), ItemID: itemID}
}

func Invalidf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalid, Message: fmt.Sprintf(format, args...)}
}

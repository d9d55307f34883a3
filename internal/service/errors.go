package service

import (
	"errors"
	"fmt"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/store"
)

// Error kinds. Handlers map each to a status code; anything that is not an
// *Error is treated as internal.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error carries a message that is safe to return to the caller.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationError(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func unauthorizedError(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

func notFoundError(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func conflictError(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// storeFailure keeps an unavailable database distinguishable from other
// faults, which stay internal.
func storeFailure(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return &Error{Kind: ErrUnavailable, Message: "The database is currently unavailable."}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func parseID(raw, msg string) (int64, error) {
	v, err := id.Parse(raw)
	if err != nil {
		return 0, validationError(msg)
	}
	return v, nil
}

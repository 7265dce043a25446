package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested entity does not exist or is
// not visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned by AuthenticateUser for any
// email/password mismatch. Callers must not reveal which half failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError marks input the caller can fix. Handlers map it to 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

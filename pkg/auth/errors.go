package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = errors.New("user not authenticated")
	ErrMissingToken       = errors.New("no authentication token received")
	ErrTokenEmailMismatch = errors.New("token issued for a different email")
	ErrAccountMismatch    = errors.New("server returned data of another user")
	ErrInvalidOTP         = errors.New("invalid otp code")
	ErrInvalidResponse    = errors.New("invalid server response")
)

// UserError carries the message shown to the user. The cause stays
// reachable with errors.Is and errors.As.
type UserError struct {
	Message string
	Cause   error
}

func (err *UserError) Error() string {
	return err.Message
}

func (err *UserError) Unwrap() error {
	return err.Cause
}

func userError(message string, cause error) error {
	return &UserError{Message: message, Cause: cause}
}

func newErr(stage string, reason interface{}) error {
	if err, ok := reason.(error); ok {
		return fmt.Errorf("%v Reason: %w", stage, err)
	}
	return fmt.Errorf("%v Reason: %v", stage, reason)
}

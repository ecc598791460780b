package api

import (
	"errors"
	"fmt"
)

// APIError is returned for every non-2xx answer and for transport failures
// (Status 0).
type APIError struct {
	Message string
	Status  int
	Data    interface{}
	cause   error
}

func (err *APIError) Error() string {
	if err.Status == 0 {
		return err.Message
	}
	return fmt.Sprintf("%v (status %v)", err.Message, err.Status)
}

func (err *APIError) Unwrap() error {
	return err.cause
}

func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

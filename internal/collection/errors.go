package collection

import (
	"errors"
	"fmt"
)

// AuthError reports a bearer token rejected by the endpoint. It is never
// retried.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("collection: unauthorized (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("collection: unauthorized (%d)", e.Status)
}

// NetworkError reports a transport failure before a response was read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("collection: network: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError reports a non-2xx response, or a 2xx body that could not be
// decoded. Message carries the server's {message} when one was sent.
type ServerError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("collection: server status %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("collection: server status %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("collection: server status %d", e.Status)
	}
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

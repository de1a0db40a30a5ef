package core

import (
	"errors"
	"fmt"
)

// Remote service errors
var (
	ErrRemoteCallFailed  = errors.New("remote call failed")                     // network, timeout or non-2xx
	ErrMalformedResponse = errors.New("malformed response from remote service") // missing expected fields
)

// Entity store errors
var (
	ErrInvalidEntity = errors.New("entity has no id")
	ErrNotFound      = errors.New("entity not found")
)

// Session errors
var (
	ErrTokenNotFound = errors.New("token not found in storage")
	ErrTokenExpired  = errors.New("token expired")
)

// Validation errors (client input)
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("first and last name are required")
)

// Navigation errors
var (
	ErrRouteConflict = errors.New("route already registered")
	ErrUnknownRoute  = errors.New("unknown route")
)

// Config errors
var (
	ErrAuthServiceRequired  = errors.New("auth service is required")
	ErrDataServiceRequired  = errors.New("data service is required")
	ErrTokenStorageRequired = errors.New("token storage is required")
	ErrBaseURLRequired      = errors.New("base URL is required")
)

// RemoteError carries the details of a failed call to a remote service.
// errors.Is(err, ErrRemoteCallFailed) is true for every RemoteError.
type RemoteError struct {
	Op         string // "auth.login", "data.events", ...
	StatusCode int    // 0 when the request never got a response
	Message    string // server supplied message, if any
	Err        error  // transport error, if any
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrRemoteCallFailed, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %v (status %d): %s", e.Op, ErrRemoteCallFailed, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %v (status %d)", e.Op, ErrRemoteCallFailed, e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteCallFailed
}

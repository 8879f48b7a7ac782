package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned after the server rejects the session. By the
// time a caller sees it the session is already cleared and the navigator
// has been asked to show the login screen.
var ErrUnauthorized = errors.New("unauthorized, please log in again")

// ErrResponseTooLarge is returned when a body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response too large")

// APIError is a well-formed response whose status code is not success.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("server returned code %d", e.Code)
	}
	return fmt.Sprintf("server returned code %d: %s", e.Code, e.Msg)
}

package api

import (
	"errors"
	"fmt"
)

// TransportError means the API could not be reached or its reply could not
// be read: connection failures, timeouts and undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError means the API answered but refused: a non-2xx status or an
// envelope with success set to false.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: HTTP %d: %s", e.StatusCode, e.Message)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

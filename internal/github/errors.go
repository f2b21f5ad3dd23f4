package github

import (
	"errors"
	"fmt"
)

// errInvalidJSON is wrapped by DecodeError when a 2xx body is not JSON.
var errInvalidJSON = errors.New("response body is not valid JSON")

// ProtocolViolationError is returned when a URL would leave the trusted API
// host or downgrade to an unencrypted scheme. No request is made.
type ProtocolViolationError struct {
	URL    string
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("refusing to fetch %s: %s", e.URL, e.Reason)
}

// TransportError wraps network level failures: DNS, refused connections,
// timeouts and cancelled contexts.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GitHub API request failed: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is returned for any non-2xx response.
type RemoteError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("GitHub API request failed (%d): %s", e.StatusCode, e.Message)
}

// DecodeError is returned when a successful response carries a body that is
// not valid JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsFetchError reports whether err originates in the fetch layer (any of the
// error types above).
func IsFetchError(err error) bool {
	var (
		pv *ProtocolViolationError
		te *TransportError
		re *RemoteError
		de *DecodeError
	)
	return errors.As(err, &pv) || errors.As(err, &te) || errors.As(err, &re) || errors.As(err, &de)
}

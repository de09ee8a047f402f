package backend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a backend call failed.
type ErrorKind int

const (
	// KindNetwork means the request never reached the server or the response was cut off.
	KindNetwork ErrorKind = iota + 1
	// KindRejected means the server answered with a non-success status.
	KindRejected
	// KindParse means a success response body could not be decoded.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the result type of a failed backend call.
// Message carries the original text for display.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s failure: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return hasKind(err, KindNetwork) }

// IsRejected reports whether err is a server rejection.
func IsRejected(err error) bool { return hasKind(err, KindRejected) }

// IsParse reports whether err is an undecodable response.
func IsParse(err error) bool { return hasKind(err, KindParse) }

func hasKind(err error, kind ErrorKind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == kind
}

// Message returns the user-displayable text of err, or fallback when err carries none.
func Message(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

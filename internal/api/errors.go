package api

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the task service client can return.
type Kind int

const (
	// KindServerFault covers 5xx, unexpected statuses and undecodable bodies.
	KindServerFault Kind = iota
	// KindUnauthenticated means no credential, or the server rejected it.
	KindUnauthenticated
	// KindValidation means the payload was rejected, by the server or locally.
	KindValidation
	// KindNotFound means the target task does not exist.
	KindNotFound
	// KindNetwork means the request never reached the server.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindNetwork:
		return "network"
	default:
		return "server fault"
	}
}

// Error is the only error type that crosses the client boundary.
type Error struct {
	Kind Kind

	// Op names the domain operation, e.g. "list tasks".
	Op string

	// Status is the HTTP status code, or 0 when no response was received.
	Status int

	// Message is the server's own explanation when it sent one; it is
	// meant to be shown to the user verbatim.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err. Errors that did not come from this
// package are reported as KindServerFault.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindServerFault
}

// IsKind reports whether err (or any error in its chain) is an *Error of
// kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// IsUnauthenticated reports whether err means the user must sign in again.
func IsUnauthenticated(err error) bool {
	return IsKind(err, KindUnauthenticated)
}

// ServerMessage returns the verbatim server message carried by err, if any.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

func unauthenticated(op string) *Error {
	return &Error{Kind: KindUnauthenticated, Op: op, Err: errNotSignedIn}
}

func invalid(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

var errNotSignedIn = errors.New("not signed in")

package domain

import "fmt"

// ErrorKind is the closed set of failure categories the service reports.
type ErrorKind int

const (
	// KindValidation is malformed input, rejected before any side effect.
	KindValidation ErrorKind = iota
	// KindAuth is bad credentials or an invalid/expired session or token.
	// Messages must not reveal which part of a multi-field check failed.
	KindAuth
	// KindConflict is a uniqueness violation, e.g. duplicate email.
	KindConflict
	// KindUpstream is an embedding/completion/mail provider failure.
	KindUpstream
	// KindRetrieval is a vector index search failure.
	KindRetrieval
	// KindNotFound is an absent session or token.
	KindNotFound
)

// String implements fmt.Stringer for log fields.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindRetrieval:
		return "retrieval"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is a kind-tagged error suitable for mapping to transport statuses.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a kind-tagged error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError builds a kind-tagged error around a cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

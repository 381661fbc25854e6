package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindAuthentication   ErrorKind = "AuthenticationError"
	KindAuthorization    ErrorKind = "AuthorizationError"
	KindValidation       ErrorKind = "ValidationError"
	KindNotFound         ErrorKind = "NotFoundError"
	KindExternalService  ErrorKind = "ExternalServiceError"
	KindSignatureInvalid ErrorKind = "WebhookSignatureInvalid"
	KindNotConnected     ErrorKind = "NotConnected"
	KindTimeout          ErrorKind = "Timeout"
	KindInternal         ErrorKind = "InternalError"
)

var (
	ErrNotConnected     = errors.New("billing account not connected")
	ErrMissingObjectID  = errors.New("event payload has no object id")
	ErrMissingCustomer  = errors.New("event payload has no customer reference")
	ErrUnexpectedObject = errors.New("event payload does not match event category")
)

// Error carries a taxonomy kind and the operation that produced it.
type Error struct {
	Kind    ErrorKind
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in the chain. Bare context
// deadlines are reported as timeouts, anything else as internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, ErrNotConnected) {
		return KindNotConnected
	}
	return KindInternal
}

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindExternalService, KindTimeout:
		return true
	}
	return false
}

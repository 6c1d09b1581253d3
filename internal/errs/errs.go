// Package errs defines the tagged error type shared by repositories, services and transports.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for stable mapping to transport status codes.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthenticated
	KindInvalidToken
	KindSessionExpired
	KindAccountDisabled
	KindInvalidCredentials
	KindValidation
	KindAlreadyExists
	KindRateLimited
	KindUpstreamStorage
)

var kindNames = [...]string{
	KindInternal:           "internal error",
	KindNotFound:           "not found",
	KindUnauthenticated:    "unauthenticated",
	KindInvalidToken:       "invalid token",
	KindSessionExpired:     "session expired",
	KindAccountDisabled:    "account disabled",
	KindInvalidCredentials: "invalid credentials",
	KindValidation:         "validation error",
	KindAlreadyExists:      "already exists",
	KindRateLimited:        "rate limited",
	KindUpstreamStorage:    "upstream storage error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Error is the single error shape used across layers.
// RemainingAttempts is set only for KindInvalidCredentials.
type Error struct {
	Kind              Kind
	Message           string
	RemainingAttempts *int
	Err               error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds an error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an error of the given kind carrying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// InvalidCredentials reports a password mismatch with the attempts left before lockout.
func InvalidCredentials(remaining int) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid password", RemainingAttempts: &remaining}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

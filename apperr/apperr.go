// Package apperr classifies failures so handlers can answer them without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the class of a failure.
type Kind int

const (
	Server Kind = iota
	Validation
	Authentication
	Unauthorized
	Forbidden
	NotFound
	Conflict
	SelfReference
	NotFollowing
	TooManyRequests
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case SelfReference:
		return "self_reference"
	case NotFollowing:
		return "not_following"
	case TooManyRequests:
		return "too_many_requests"
	default:
		return "server"
	}
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case Validation, Authentication, Conflict, SelfReference, NotFollowing:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure. Message is safe to show to clients; Err is the cause and is not.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of kind k.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message}
}

// Wrap classifies err as a server failure with a client-safe message.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Server, Message: message, Err: err}
}

// Invalid builds a validation error carrying per-field messages.
func Invalid(fields ...FieldError) *Error {
	return &Error{Kind: Validation, Message: "Validation failed", Fields: fields}
}

// KindOf returns the kind of err; unclassified errors are Server.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Server
}

// Is reports whether err is classified as k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Package apperr defines the failure kinds every workflow reports and how
// they surface over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidInput  Kind = "INVALID_INPUT"
	KindNotFound      Kind = "NOT_FOUND"
	KindUnauthorized  Kind = "UNAUTHORIZED"
	KindForbidden     Kind = "FORBIDDEN"
	KindAlreadyExists Kind = "ALREADY_EXISTS"
	KindAlreadyMember Kind = "ALREADY_MEMBER"
	KindNotMember     Kind = "NOT_MEMBER"
	KindStorage       Kind = "STORAGE_ERROR"
	KindNotification  Kind = "NOTIFICATION_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, kept for storage and notification failures.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the cause's text, or "" when there is none.
func (e *Error) Detail() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }

// Storage wraps a persistence failure; the driver detail is preserved.
func Storage(err error) *Error {
	return Wrap(KindStorage, "SQL Error", err)
}

// As extracts the *Error from err's chain. Errors that carry no kind are
// treated as storage failures.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Storage(err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindNotMember:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized, KindForbidden:
		return http.StatusForbidden
	case KindAlreadyExists, KindAlreadyMember:
		return http.StatusConflict
	case KindNotification:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

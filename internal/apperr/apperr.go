// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apperr defines the typed failures surfaced by the authoring core
// and the HTTP services it talks to. Every failure carries a Kind; callers
// test for a kind with errors.Is against the package sentinels.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindGeneration   Kind = "generation"
	KindExport       Kind = "export"
	KindBusy         Kind = "busy"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is a typed failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrGeneration   = &Error{Kind: KindGeneration, Message: "generation failed"}
	ErrExport       = &Error{Kind: KindExport, Message: "export failed"}
	ErrBusy         = &Error{Kind: KindBusy, Message: "request already in flight"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInternal     = &Error{Kind: KindInternal, Message: "internal error"}
)

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus returns the HTTP status code a service responds with for kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindBusy, KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus maps an HTTP error status from a service to a kind. fallback is
// the kind used for statuses that have no specific meaning for the calling
// operation (e.g. KindGeneration for generation requests).
func FromStatus(status int, fallback Kind) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		if fallback == KindGeneration || fallback == KindExport {
			return fallback
		}
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if fallback == KindGeneration || fallback == KindExport {
			return fallback
		}
		return KindValidation
	case http.StatusConflict:
		if fallback == KindGeneration {
			return KindBusy
		}
		return KindConflict
	default:
		return fallback
	}
}

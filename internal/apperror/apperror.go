// Package apperror is the error taxonomy shared by every service and the
// HTTP layer that renders it.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation_error"
	KindConflict        Kind = "conflict"
	KindUpstreamFailure Kind = "upstream_failure"
	KindInternal        Kind = "internal_error"
)

// Error carries a Kind plus the HTTP status it maps to.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Status  int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err, Status: status}
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, http.StatusForbidden, message, nil)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, nil)
}

func Validation(message string) *Error {
	return newError(KindValidation, http.StatusBadRequest, message, nil)
}

func Conflict(message string) *Error {
	return newError(KindConflict, http.StatusConflict, message, nil)
}

// Upstream wraps a failing third-party call (CDN, mail relay).
func Upstream(message string, err error) *Error {
	return newError(KindUpstreamFailure, http.StatusBadGateway, message, err)
}

// PaymentDeclined is an upstream failure where the gateway answered but did
// not confirm the charge.
func PaymentDeclined(message string) *Error {
	return newError(KindUpstreamFailure, http.StatusPaymentRequired, message, nil)
}

func Internal(message string, err error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, message, err)
}

// KindOf returns the Kind of err, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status err renders as.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-safe message. Unclassified errors never leak
// their text.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

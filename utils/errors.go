package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
	KindForbidden
	KindUnauthorized
	KindInvalidSignature
	KindAlreadyFinalized
	KindPaymentIncomplete
)

var kindNames = map[ErrorKind]string{
	KindInternal:          "internal",
	KindNotFound:          "not_found",
	KindInvalidInput:      "invalid_input",
	KindConflict:          "conflict",
	KindForbidden:         "forbidden",
	KindUnauthorized:      "unauthorized",
	KindInvalidSignature:  "invalid_signature",
	KindAlreadyFinalized:  "already_finalized",
	KindPaymentIncomplete: "payment_incomplete",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// HTTPStatus maps an error kind to the response code sent to clients.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindConflict, KindInvalidSignature, KindPaymentIncomplete:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindAlreadyFinalized:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AppError is an operational error whose message is safe to show to clients.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *AppError {
	return newAppError(KindNotFound, format, args...)
}

func InvalidInput(format string, args ...any) *AppError {
	return newAppError(KindInvalidInput, format, args...)
}

func Conflict(format string, args ...any) *AppError {
	return newAppError(KindConflict, format, args...)
}

func Forbidden(format string, args ...any) *AppError {
	return newAppError(KindForbidden, format, args...)
}

func Unauthorized(format string, args ...any) *AppError {
	return newAppError(KindUnauthorized, format, args...)
}

func InvalidSignature(err error) *AppError {
	return &AppError{Kind: KindInvalidSignature, Message: "Invalid webhook signature", Err: err}
}

func AlreadyFinalized(format string, args ...any) *AppError {
	return newAppError(KindAlreadyFinalized, format, args...)
}

func PaymentIncomplete(format string, args ...any) *AppError {
	return newAppError(KindPaymentIncomplete, format, args...)
}

// Internal wraps an unexpected failure. The message is only logged.
func Internal(err error, format string, args ...any) *AppError {
	return &AppError{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInvalid      Code = "INVALID_ARGUMENT"
	CodeStoreFailure Code = "STORE_FAILURE"
	CodeUnauthorized Code = "UNAUTHENTICATED"
)

// AppError is the error shape every operation in the service returns.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func NotFound(msg string) error { return New(CodeNotFound, msg) }

func Conflict(msg string) error { return New(CodeConflict, msg) }

func Invalid(msg string) error { return New(CodeInvalid, msg) }

func StoreFailure(msg string, cause error) error { return Wrap(CodeStoreFailure, msg, cause) }

func Unauthorized(msg string) error { return New(CodeUnauthorized, msg) }

// CodeOf extracts the taxonomy code, defaulting to STORE_FAILURE for
// unclassified errors coming out of the persistence layer.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStoreFailure
}

func Is(err error, code Code) bool { return CodeOf(err) == code }

// HTTPStatus maps a taxonomy code onto the wire status used by handlers and
// fanout payloads.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

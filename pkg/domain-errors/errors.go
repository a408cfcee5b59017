// Package domainerrors defines the coded error vocabulary crossing the
// service boundary. Services create these; the HTTP layer translates the
// code into a status. Stores should return pkg/platform/sentinel errors
// instead and let services wrap them.
package domainerrors

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"
)

// GatewayError carries a machine-readable code plus a human-readable
// message. The wrapped cause, when present, stays out of HTTP responses.
type GatewayError struct {
	Code    Code
	Message string
	cause   error
}

func (e GatewayError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e GatewayError) Unwrap() error { return e.cause }

func New(code Code, message string) error {
	return GatewayError{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) error {
	return GatewayError{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code. HasCode is the older
// spelling kept for call-site symmetry.
func Is(err error, code Code) bool {
	var gw GatewayError
	if errors.As(err, &gw) {
		return gw.Code == code
	}
	return false
}

func HasCode(err error, code Code) bool { return Is(err, code) }

// ToHTTPStatus maps an error code onto the HTTP status the transport
// layer should answer with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

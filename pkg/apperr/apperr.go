// Package apperr carries machine-readable error codes from domain logic to
// the transport layer so HTTP handlers never inspect error strings.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	// Ledger domain failures.
	CodeInvalidIndex           Code = "invalid_index"
	CodeNotAuthorized          Code = "not_authorized"
	CodeCampaignClosed         Code = "campaign_closed"
	CodeCampaignStillOpen      Code = "campaign_still_open"
	CodeCampaignAlreadySettled Code = "campaign_already_settled"
	CodeNothingToSettle        Code = "nothing_to_settle"
	CodeNoBenefactor           Code = "no_benefactor"
	CodeOverflow               Code = "overflow"
	CodeReentrantCall          Code = "reentrant_call"
	CodeTransferFailed         Code = "transfer_failed"

	// Boundary failures.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"
)

// Error pairs a code with a human-readable message and optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that records an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code so sentinel comparisons survive wrapping and
// re-construction.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// CodeOf extracts the code from an error chain, CodeInternal when absent.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// ToHTTPStatus maps codes to HTTP statuses for the boundary layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidIndex, CodeNotFound:
		return http.StatusNotFound
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeCampaignClosed, CodeCampaignStillOpen, CodeCampaignAlreadySettled,
		CodeNothingToSettle, CodeNoBenefactor, CodeReentrantCall:
		return http.StatusConflict
	case CodeOverflow, CodeBadRequest:
		return http.StatusBadRequest
	case CodeTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

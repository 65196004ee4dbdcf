package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Local request-shape failures, surfaced to the user, never retried.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Gateway initiation failures (GATEWAY_*).
	ErrorCodeGatewayUnreachable     ErrorCode = "GATEWAY_UNREACHABLE"      // transport failure or timeout
	ErrorCodeGatewayResponseInvalid ErrorCode = "GATEWAY_RESPONSE_INVALID" // malformed synchronous response

	// Postback failures (POSTBACK_*). Both are answered with a server error so
	// the gateway's retry mechanism re-delivers.
	ErrorCodePostbackAuthFailed  ErrorCode = "POSTBACK_AUTH_FAILED"
	ErrorCodePostbackParseFailed ErrorCode = "POSTBACK_PARSE_FAILED"

	// Session resolution failure: answered with a client error, retry won't help.
	ErrorCodeSubmissionNotFound ErrorCode = "SUBMISSION_NOT_FOUND"

	// Internal errors (INTERNAL_*).
	ErrorCodeStoreError ErrorCode = "INTERNAL_STORE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsGatewayError reports whether the initiation round trip itself failed, as
// opposed to the gateway declining the payment.
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayUnreachable || code == ErrorCodeGatewayResponseInvalid
}

// IsPostbackRejection reports whether a postback must be answered with a server
// error status to trigger gateway-side retry.
func IsPostbackRejection(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePostbackAuthFailed || code == ErrorCodePostbackParseFailed
}

var (
	ErrSubmissionNotFound = NewDomainError(ErrorCodeSubmissionNotFound, "submission not found for merchant session")
	ErrPostbackAuthFailed = NewDomainError(ErrorCodePostbackAuthFailed, "postback shared secret mismatch")
)

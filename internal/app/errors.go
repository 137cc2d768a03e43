package app

import "fmt"

// DomainError is a service-level failure with an HTTP status attached.
// mapError unwraps it into the {code, error, details?} response body, so
// Code values (VALIDATION_ERROR, INVALID_CREDENTIALS, SYNC_FAILED, ...)
// are part of the API contract.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

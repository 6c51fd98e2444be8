package repo

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeInvalidURL         = "INVALID_GITHUB_URL"
	CodeTransportFailure   = "TRANSPORT_FAILURE"
	CodePartialUnavailable = "PARTIAL_UNAVAILABLE"
)

// Messages surfaced in the aggregator's error field
const (
	MessageInvalidURL  = "Invalid GitHub URL"
	MessageFetchFailed = "Failed to fetch GitHub data"
)

// Domain errors

type DomainError struct {
	Code    string
	Message string
	Err     error
	// StatusCode is the HTTP status of a non-2xx response, zero otherwise
	StatusCode int
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Predefined domain errors

func ErrInvalidURL(raw string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidURL,
		Message: MessageInvalidURL,
		Err:     fmt.Errorf("no owner/name in %q", raw),
	}
}

// ErrTransport reports that no usable response was obtained for resource
func ErrTransport(resource string, err error) *DomainError {
	return &DomainError{
		Code:    CodeTransportFailure,
		Message: fmt.Sprintf("fetching %s", resource),
		Err:     err,
	}
}

// ErrUnavailable reports a non-2xx response for resource
func ErrUnavailable(resource string, status int, err error) *DomainError {
	return &DomainError{
		Code:       CodePartialUnavailable,
		Message:    fmt.Sprintf("%s returned status %d", resource, status),
		Err:        err,
		StatusCode: status,
	}
}

func hasCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// IsInvalidURL reports whether err is a URL validation failure
func IsInvalidURL(err error) bool {
	return hasCode(err, CodeInvalidURL)
}

// IsTransport reports whether err aborts a multi-fetch operation
func IsTransport(err error) bool {
	return hasCode(err, CodeTransportFailure)
}

// IsUnavailable reports whether err is a tolerated non-2xx response
func IsUnavailable(err error) bool {
	return hasCode(err, CodePartialUnavailable)
}

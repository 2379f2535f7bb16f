package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a scrape pipeline error
type Kind string

const (
	// KindTimeout represents a page navigation exceeding its budget
	KindTimeout Kind = "TIMEOUT"
	// KindNotFound represents a missing card or an unextractable page
	KindNotFound Kind = "NOT_FOUND"
	// KindValidation represents a malformed request or wrong-domain URL
	KindValidation Kind = "VALIDATION_ERROR"
	// KindAuth represents a missing or invalid API key
	KindAuth Kind = "AUTH_ERROR"
	// KindRateLimited represents a caller exceeding its request budget
	KindRateLimited Kind = "RATE_LIMITED"
	// KindInternal represents anything else: browser crash, storage failure
	KindInternal Kind = "INTERNAL"
)

// ScrapeError represents a pipeline-specific error
type ScrapeError struct {
	Kind    Kind
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Kind, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code
func (e *ScrapeError) HTTPStatus() int {
	switch e.Kind {
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new ScrapeError
func New(kind Kind, source, message string, err error) *ScrapeError {
	return &ScrapeError{
		Kind:    kind,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTimeout creates a new navigation timeout error
func NewTimeout(source, url string, err error) *ScrapeError {
	return New(KindTimeout, source, fmt.Sprintf("navigation timed out for %s", url), err)
}

// NewNotFound creates a new not-found error
func NewNotFound(source, message string) *ScrapeError {
	return New(KindNotFound, source, message, nil)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ScrapeError {
	return New(KindValidation, source, message, nil)
}

// NewAuth creates a new authentication error
func NewAuth(message string) *ScrapeError {
	return New(KindAuth, "", message, nil)
}

// NewInternal creates a new internal error
func NewInternal(source, message string, err error) *ScrapeError {
	return New(KindInternal, source, message, err)
}

// KindOf extracts the error kind, defaulting to INTERNAL for plain errors
func KindOf(err error) Kind {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// StatusOf extracts the HTTP status for an error, defaulting to 500
func StatusOf(err error) int {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return http.StatusInternalServerError
}

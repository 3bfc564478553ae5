package errorutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Category groups failures by how the session core reacts to them.
type Category string

const (
	// CategoryCredential covers bad email/password and duplicate registration.
	CategoryCredential Category = "credential"
	// CategoryAuthExpiry covers a 401 that could not be recovered by refresh.
	CategoryAuthExpiry Category = "auth_expiry"
	// CategoryNetwork covers transport failures and timeouts.
	CategoryNetwork Category = "network"
	// CategoryUpstream covers any other non-2xx answer from the CRM API.
	CategoryUpstream  Category = "upstream"
	CategoryInvalid   Category = "validation"
	CategoryForbidden Category = "forbidden"
	CategoryInternal  Category = "internal"
)

// DomainError standardizes application errors.
type DomainError struct {
	Category   Category
	Code       string
	Message    string
	HTTPStatus int
	Details    json.RawMessage
	Err        error
	// FromServer is set when Message was supplied by the CRM API envelope.
	FromServer bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(category Category, code, message string, status int) *DomainError {
	return &DomainError{Category: category, Code: code, Message: message, HTTPStatus: status}
}

func NewValidationError(message string) error {
	return NewDomainError(CategoryInvalid, "VALIDATION_FAILED", message, http.StatusBadRequest)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CategoryCredential, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

func NewForbidden(message string) error {
	return NewDomainError(CategoryForbidden, "FORBIDDEN", message, http.StatusForbidden)
}

func NewConflict(message string) error {
	return NewDomainError(CategoryCredential, "CONFLICT", message, http.StatusConflict)
}

// NewSessionExpired signals that the session was torn down and the caller
// has to sign in again.
func NewSessionExpired(err error) error {
	return &DomainError{
		Category:   CategoryAuthExpiry,
		Code:       "SESSION_EXPIRED",
		Message:    "session expired, please sign in again",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func NewNetworkError(err error) error {
	return &DomainError{
		Category:   CategoryNetwork,
		Code:       "NETWORK_ERROR",
		Message:    "unable to reach the CRM API",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewUpstreamError wraps a non-2xx answer. Credential-shaped statuses are
// classified so callers can tell them apart from outages.
func NewUpstreamError(status int, code, message string, details json.RawMessage) error {
	category := CategoryUpstream
	switch status {
	case http.StatusUnauthorized, http.StatusConflict:
		category = CategoryCredential
	case http.StatusForbidden:
		category = CategoryForbidden
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		category = CategoryInvalid
	}
	if code == "" {
		code = "UPSTREAM_ERROR"
	}
	fromServer := message != ""
	if !fromServer {
		message = http.StatusText(status)
	}
	return &DomainError{
		Category:   category,
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Details:    details,
		FromServer: fromServer,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Category:   CategoryInternal,
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if IsTransport(err) {
		de, _ := NewNetworkError(err).(*DomainError)
		return de
	}
	de, _ := NewInternalError(err).(*DomainError)
	return de
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}

// IsTransport reports whether err came from the network rather than from a response.
func IsTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HasCategory reports whether err is a DomainError of the given category.
func HasCategory(err error, category Category) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Category == category
}

// UserMessage returns the server-supplied message when err carries one,
// otherwise fallback.
func UserMessage(err error, fallback string) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.FromServer {
		return domainErr.Message
	}
	return fallback
}

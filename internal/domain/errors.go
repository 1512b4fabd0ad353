package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrIngestionInProgress is returned when another ingestion already holds the tenant
	ErrIngestionInProgress = errors.New("ingestion already in progress for tenant")

	// ErrTenantNotFound is returned when the tenant record does not exist
	ErrTenantNotFound = errors.New("tenant not found")
)

// StatusCoder is implemented by errors that carry an HTTP status hint for the boundary layer
type StatusCoder interface {
	HTTPStatus() int
}

// ConfigurationError means the tenant is missing its shop domain or access token
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

func (e *ConfigurationError) HTTPStatus() int {
	return http.StatusBadRequest
}

// ExternalAPIError is any failed call to the storefront API, including auth failures and rate limiting.
// StatusCode is 0 when no response was received.
type ExternalAPIError struct {
	Resource   string
	StatusCode int
	Detail     string
	// RetryAfter is the delay requested by a rate-limited response
	RetryAfter time.Duration
	// Transport marks a request that never got a response, such as a refused connection or a timeout
	Transport bool
}

func (e *ExternalAPIError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("shopify request for %s failed (%d): %s", e.Resource, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("shopify request failed (%d): %s", e.StatusCode, e.Detail)
}

func (e *ExternalAPIError) HTTPStatus() int {
	if e.IsAuthFailure() {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// IsAuthFailure reports whether the storefront rejected the credentials or their scopes
func (e *ExternalAPIError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Retryable reports whether the failure is transient: rate limiting, server errors or a failed transport.
// Failures without a status that are not transport errors, such as an undecodable body, are permanent.
func (e *ExternalAPIError) Retryable() bool {
	return e.Transport || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// PersistenceError wraps a failed store operation
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) HTTPStatus() int {
	return http.StatusInternalServerError
}

// CredentialCheckError is returned when the preflight credential check did not pass
type CredentialCheckError struct {
	Result *CredentialCheck
}

func (e *CredentialCheckError) Error() string {
	if e.Result == nil {
		return "shopify credential check failed"
	}
	if !e.Result.BaseOK {
		return e.Result.Error
	}
	return "shopify credentials cannot read orders, customers or products"
}

// HTTPStatus answers 401 for rejected credentials and 500 when the storefront could not answer the base probe
func (e *CredentialCheckError) HTTPStatus() int {
	if e.Result == nil {
		return http.StatusBadRequest
	}
	if e.Result.IsAuthFailure() {
		return http.StatusUnauthorized
	}
	if !e.Result.BaseOK && (e.Result.StatusCode == 0 || e.Result.StatusCode >= 500) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// HTTPStatusOf maps an error to the status code the boundary layer should answer with
func HTTPStatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrIngestionInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return http.StatusInternalServerError
}

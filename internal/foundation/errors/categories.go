package errors

import (
	"maps"
	"net/http"
)

// ErrorCategory routes an error to an exit code and an HTTP status.
type ErrorCategory string

const (
	// Caller input.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Local storage: image reads, archives, the ledger.
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryBundle     ErrorCategory = "bundle"
	CategoryLedger     ErrorCategory = "ledger"

	// Bundle event delivery.
	CategoryNotify ErrorCategory = "notify"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// categoryRoute is how one category surfaces.
type categoryRoute struct {
	exitCode int
	status   int
}

var routes = map[ErrorCategory]categoryRoute{
	CategoryValidation: {exitCode: 2, status: http.StatusBadRequest},
	CategoryNotFound:   {exitCode: 4, status: http.StatusNotFound},
	CategoryConfig:     {exitCode: 7, status: http.StatusBadRequest},
	CategoryNotify:     {exitCode: 8, status: http.StatusBadGateway},
	CategoryInternal:   {exitCode: 10, status: http.StatusInternalServerError},
	CategoryFileSystem: {exitCode: 11, status: http.StatusInternalServerError},
	CategoryBundle:     {exitCode: 11, status: http.StatusUnprocessableEntity},
	CategoryLedger:     {exitCode: 11, status: http.StatusInternalServerError},
	CategoryRuntime:    {exitCode: 12, status: http.StatusServiceUnavailable},
}

// unclassified applies to plain errors and unknown categories.
var unclassified = categoryRoute{exitCode: 1, status: http.StatusInternalServerError}

func routeFor(err error) categoryRoute {
	if c, ok := AsClassified(err); ok {
		if r, ok := routes[c.category]; ok {
			return r
		}
	}
	return unclassified
}

// ErrorSeverity is the impact of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // stops the command
	SeverityError   ErrorSeverity = "error"   // fails the operation
	SeverityWarning ErrorSeverity = "warning" // operation continues degraded
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy hints whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user" // the input must change first
)

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// with returns a copy of c holding key.
func (c ErrorContext) with(key string, value any) ErrorContext {
	out := make(ErrorContext, len(c)+1)
	maps.Copy(out, c)
	out[key] = value
	return out
}

// Get returns the value stored under key.
func (c ErrorContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

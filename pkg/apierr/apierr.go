// Package apierr defines the error taxonomy returned to API clients and the
// JSON envelope it is written in.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Envelope statuses.
const (
	StatusError  = "error"
	StatusFailed = "failed"
)

// Error codes.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeNotConfigured       = "not_configured"
	CodeRateLimited         = "rate_limited"
	CodePaymentRequired     = "payment_required"
	CodeUpstreamRejected    = "upstream_rejected"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeMalformedResponse   = "malformed_response"
	CodeCanceled            = "canceled"
	CodeInternal            = "internal"
)

// Error is an API-facing error with a stable code and HTTP status.
type Error struct {
	Status     string
	Code       string
	Message    string
	Retryable  bool
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Envelope is the JSON body written for every failed request.
type Envelope struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Envelope returns the JSON representation of e.
func (e *Error) Envelope() Envelope {
	return Envelope{
		Status:    e.Status,
		Error:     e.Message,
		Code:      e.Code,
		Retryable: e.Retryable,
	}
}

// Invalid reports a client mistake.
func Invalid(format string, args ...any) *Error {
	return &Error{
		Status:     StatusError,
		Code:       CodeInvalidRequest,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NotConfigured reports missing server-side configuration such as an API key.
func NotConfigured(what string) *Error {
	return &Error{
		Status:     StatusError,
		Code:       CodeNotConfigured,
		Message:    what + " is not configured",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Malformed reports an upstream result that could not be used.
func Malformed(provider string, err error) *Error {
	return &Error{
		Status:     StatusFailed,
		Code:       CodeMalformedResponse,
		Message:    fmt.Sprintf("%s returned an unusable result", provider),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// Unavailable reports that no upstream provider could serve the request.
func Unavailable(provider string, err error) *Error {
	return &Error{
		Status:     StatusFailed,
		Code:       CodeUpstreamUnavailable,
		Message:    fmt.Sprintf("%s is unavailable", provider),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{
		Status:     StatusError,
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromStatus maps an upstream HTTP status to an API error. Only 429 is
// retryable; 5xx means every configured provider already failed.
func FromStatus(provider string, status int, message string) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{
			Status:     StatusFailed,
			Code:       CodeRateLimited,
			Message:    "rate limit exceeded, please try again later",
			Retryable:  true,
			HTTPStatus: http.StatusTooManyRequests,
		}
	case status == http.StatusPaymentRequired:
		return &Error{
			Status:     StatusFailed,
			Code:       CodePaymentRequired,
			Message:    "AI credits exhausted, please add credits to continue",
			HTTPStatus: http.StatusPaymentRequired,
		}
	case status >= 400 && status < 500:
		if message == "" {
			message = http.StatusText(status)
		}
		return &Error{
			Status:     StatusFailed,
			Code:       CodeUpstreamRejected,
			Message:    fmt.Sprintf("%s rejected the request (%d): %s", provider, status, message),
			HTTPStatus: http.StatusBadGateway,
		}
	default:
		return &Error{
			Status:     StatusFailed,
			Code:       CodeUpstreamUnavailable,
			Message:    fmt.Sprintf("%s is unavailable (%d)", provider, status),
			HTTPStatus: http.StatusBadGateway,
		}
	}
}

// StatusCoder is implemented by upstream errors that carry an HTTP status.
type StatusCoder interface {
	error
	Upstream() (provider string, status int, message string)
}

// From converts any error into an *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		provider, status, message := sc.Upstream()
		e := FromStatus(provider, status, message)
		e.Err = err
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Status:     StatusFailed,
			Code:       CodeCanceled,
			Message:    "request canceled or timed out",
			Retryable:  true,
			HTTPStatus: http.StatusGatewayTimeout,
			Err:        err,
		}
	}
	return Internal(err)
}

// Write writes err as a JSON envelope with its HTTP status.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	if e == nil {
		e = Internal(errors.New("unknown error"))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	_ = json.NewEncoder(w).Encode(e.Envelope())
}

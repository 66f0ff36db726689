package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or out-of-range arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedForecast marks a forecast that is unsorted, gapped or has inconsistent bounds.
	ErrMalformedForecast = errors.New("malformed forecast")
	// ErrNotFound marks a failed item profile or stock lookup.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamForecast marks a demand predictor failure or an empty prediction.
	ErrUpstreamForecast = errors.New("upstream forecast failure")
)

// ErrorKind is a stable, loggable classification of an analysis error.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindMalformedForecast ErrorKind = "malformed_forecast"
	KindNotFound          ErrorKind = "not_found"
	KindUpstreamForecast  ErrorKind = "upstream_forecast_failure"
	KindTimeout           ErrorKind = "timeout"
	KindCancelled         ErrorKind = "cancelled"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies err. Timeouts win over the wrapped cause so that a predictor
// hitting its per-item deadline is reported as a timeout.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrMalformedForecast):
		return KindMalformedForecast
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpstreamForecast):
		return KindUpstreamForecast
	default:
		return KindInternal
	}
}

// InvalidInputf wraps ErrInvalidInput with a formatted detail message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// MalformedForecastf wraps ErrMalformedForecast with a formatted detail message.
func MalformedForecastf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedForecast, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

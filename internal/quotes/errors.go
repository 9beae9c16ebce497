package quotes

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType classifies failures crossing the engine boundary.
type ErrorType string

const (
	ErrRateLimit ErrorType = "rate_limit"     // bucket exhausted or circuit open
	ErrNetwork   ErrorType = "network"        // timeout, connection failure, non-2xx
	ErrProvider  ErrorType = "provider_error" // malformed or empty response
	ErrStorage   ErrorType = "storage"        // persistence read/write failure
)

// QuoteError carries the failing source and operation for diagnostics.
type QuoteError struct {
	Type    ErrorType
	Source  Source
	Op      string
	Message string
	Cause   error
}

func (e *QuoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error from %s.%s: %s (%v)", e.Type, e.Source, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error from %s.%s: %s", e.Type, e.Source, e.Op, e.Message)
}

func (e *QuoteError) Unwrap() error { return e.Cause }

func NewRateLimitError(source Source, op, message string) *QuoteError {
	return &QuoteError{Type: ErrRateLimit, Source: source, Op: op, Message: message}
}

func NewNetworkError(source Source, op, message string, cause error) *QuoteError {
	return &QuoteError{Type: ErrNetwork, Source: source, Op: op, Message: message, Cause: cause}
}

func NewProviderError(source Source, op, message string, cause error) *QuoteError {
	return &QuoteError{Type: ErrProvider, Source: source, Op: op, Message: message, Cause: cause}
}

func NewStorageError(op, key string, cause error) *QuoteError {
	return &QuoteError{Type: ErrStorage, Op: op, Message: "key " + key, Cause: cause}
}

func hasType(err error, t ErrorType) bool {
	var qe *QuoteError
	return errors.As(err, &qe) && qe.Type == t
}

func IsRateLimit(err error) bool { return hasType(err, ErrRateLimit) }

func IsNetwork(err error) bool { return hasType(err, ErrNetwork) }

func IsProviderError(err error) bool { return hasType(err, ErrProvider) }

// classifyError converts an arbitrary provider failure into a QuoteError
// stamped with source and op.
func classifyError(source Source, op string, err error) *QuoteError {
	var qe *QuoteError
	if errors.As(err, &qe) {
		out := *qe
		if out.Source == "" {
			out.Source = source
		}
		if out.Op == "" {
			out.Op = op
		}
		return &out
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewNetworkError(source, op, "request timed out", err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return NewNetworkError(source, op, "connection failure", err)
	}
	return NewProviderError(source, op, "request failed", err)
}

package core

import (
	"errors"
	"fmt"
)

// Error is the typed error used across the voice pipeline.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Provider   string    `json:"provider,omitempty"`
	ChunkIndex *int      `json:"chunk_index,omitempty"`
	Underlying error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConfiguration marks invalid construction parameters. Fatal at
	// construction time; never produced mid-stream.
	ErrConfiguration ErrorType = "configuration_error"

	// ErrProvider marks a text-source failure. Fatal: it aborts the
	// voice stream and propagates to the caller.
	ErrProvider ErrorType = "provider_error"

	// ErrSynthesis marks a single-chunk synthesis failure. Recoverable:
	// the chunk is skipped and the stream continues.
	ErrSynthesis ErrorType = "synthesis_error"

	// ErrRateLimit marks a provider-imposed rate limit rejection.
	ErrRateLimit ErrorType = "rate_limit_error"
)

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// NewProviderError wraps a text-source failure.
func NewProviderError(provider string, underlying error) *Error {
	return &Error{
		Type:       ErrProvider,
		Provider:   provider,
		Message:    underlying.Error(),
		Underlying: underlying,
	}
}

// NewSynthesisError wraps a per-chunk synthesis failure.
func NewSynthesisError(provider string, chunkIndex int, underlying error) *Error {
	return &Error{
		Type:       ErrSynthesis,
		Provider:   provider,
		ChunkIndex: &chunkIndex,
		Message:    underlying.Error(),
		Underlying: underlying,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(provider string, message string) *Error {
	return &Error{
		Type:     ErrRateLimit,
		Provider: provider,
		Message:  message,
	}
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrSynthesis:
		return true
	default:
		return false
	}
}

// IsFatal reports whether the error terminates the voice stream.
func IsFatal(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return true
	}
	switch ce.Type {
	case ErrSynthesis, ErrRateLimit:
		return false
	default:
		return true
	}
}

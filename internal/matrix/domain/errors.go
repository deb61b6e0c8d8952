package domain

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents a file or API resource that does not exist at a ref.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found at ref %s", e.Resource, e.Ref)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, ref string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Ref:      ref,
	}
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// UpstreamError is a non-success, non-404 answer from the hosting API or the
// content store.
type UpstreamError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s returned status %d", e.URL, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamStatus reports whether err wraps an UpstreamError with the given status.
func IsUpstreamStatus(err error, status int) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr) && upstreamErr.StatusCode == status
}

// DecodeError is returned when a diff or text payload cannot be decoded.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigParseError marks a package config descriptor that exists but is malformed.
type ConfigParseError struct {
	Package string
	Source  SourceLocation
	Err     error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parsing config of %s at %s: %v", e.Package, e.Source, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// SkipError explains why a package contributes nothing to the matrix.
// It is an expected outcome, not a failure.
type SkipError struct {
	Package string
	Source  SourceLocation
	Reason  string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipping %s at %s: %s", e.Package, e.Source, e.Reason)
}

// IsSkip checks if an error is or wraps a SkipError.
func IsSkip(err error) bool {
	var skipErr *SkipError
	return errors.As(err, &skipErr)
}

// RateLimitExceededError is returned once the API quota is fully used.
type RateLimitExceededError struct {
	Limit int
	Reset time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("github api rate limit of %d exhausted until %s", e.Limit, e.Reset.Format(time.RFC3339))
}

// RateLimitWarning is an advisory raised when the remaining API quota runs low.
type RateLimitWarning struct {
	Used      int
	Limit     int
	Remaining int
	Reset     time.Time
}

func (w RateLimitWarning) String() string {
	return fmt.Sprintf("%d/%d github api calls used, remaining %d until %s",
		w.Used, w.Limit, w.Remaining, w.Reset.Format(time.RFC3339))
}

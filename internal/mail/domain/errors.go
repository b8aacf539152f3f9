package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAuthExpired means the account's credential is no longer valid and
	// the user must re-authorize out of band. Never retried.
	ErrAuthExpired = errors.New("mail provider: authorization expired")

	// ErrMessageNotFound is returned by FetchDetail for unknown ids.
	ErrMessageNotFound = errors.New("mail provider: message not found")
)

// RateLimitedError is retryable after the suggested delay. RetryAfter is zero
// when the provider gave no hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("mail provider: rate limited, retry after %s", e.RetryAfter)
	}
	return "mail provider: rate limited"
}

// TransientError wraps a retryable network-level failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("mail provider: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a non-retryable provider failure, such as a malformed
// request rejected by the provider.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("mail provider: permanent failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ErrorKind buckets a sync failure for callers of the sync endpoint.
type ErrorKind string

const (
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindAuthExpired ErrorKind = "auth_expired"
	ErrKindTransient   ErrorKind = "transient_network"
	ErrKindPermanent   ErrorKind = "permanent_provider_error"
	ErrKindPersistence ErrorKind = "persistence_failure"
	ErrKindTimeout     ErrorKind = "timeout"
)

// KindOf maps a provider call error to its taxonomy bucket. Persistence
// failures are classified at the call site, not here; adapters wrap anything
// unrecognized as transient, so that is the fallback.
func KindOf(err error) ErrorKind {
	var rl *RateLimitedError
	var pe *PermanentError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrKindTimeout
	case errors.Is(err, ErrAuthExpired):
		return ErrKindAuthExpired
	case errors.As(err, &rl):
		return ErrKindRateLimited
	case errors.As(err, &pe):
		return ErrKindPermanent
	default:
		return ErrKindTransient
	}
}

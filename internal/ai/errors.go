package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies completion failures.
type ErrorKind int

const (
	KindPermanent ErrorKind = iota
	KindTransient
	KindRateLimited
)

var errorKindNames = [...]string{
	KindPermanent:   "permanent",
	KindTransient:   "transient",
	KindRateLimited: "rate_limited",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", k)
}

// Error is returned by Completer implementations.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	// RetryAfter is the delay requested by the provider, zero when unknown.
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("ai [%s] %s: %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("ai [%s]: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf reports the kind of the first *Error in err's chain.
// Errors that carry no classification are permanent.
func KindOf(err error) ErrorKind {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	return KindPermanent
}

// IsRetryable reports whether the failure may succeed on another attempt.
func IsRetryable(err error) bool {
	kind := KindOf(err)
	return kind == KindTransient || kind == KindRateLimited
}

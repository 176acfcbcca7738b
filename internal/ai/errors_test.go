package ai

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: KindRateLimited, Provider: "gemini", Message: "quota exhausted"}
	want := "ai [rate_limited] gemini: quota exhausted"
	if got := e.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	e = &Error{Kind: KindPermanent, Message: "empty response"}
	want = "ai [permanent]: empty response"
	if got := e.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	e := &Error{Kind: KindTransient, Cause: cause}
	if !errors.Is(e, cause) {
		t.Fatal("Unwrap should return the cause")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      ErrorKind
		retryable bool
	}{
		{"plain error", errors.New("boom"), KindPermanent, false},
		{"transient", &Error{Kind: KindTransient}, KindTransient, true},
		{"wrapped rate limit", fmt.Errorf("generate: %w", &Error{Kind: KindRateLimited}), KindRateLimited, true},
		{"permanent", &Error{Kind: KindPermanent}, KindPermanent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Fatalf("KindOf() = %v, want %v", got, tt.kind)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Fatalf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestErrorKindString(t *testing.T) {
	if got := ErrorKind(42).String(); got != "unknown(42)" {
		t.Fatalf("unexpected string for unknown kind: %q", got)
	}
}

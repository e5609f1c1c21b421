package ratelimit

import (
	"testing"
	"time"
)

func TestAllowSeparatesOperationsAndIPs(t *testing.T) {
	limiter := New(Limits{TokenIssue: 2, Ballot: 1, Window: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if _, ok := limiter.Allow(OpTokenIssue, "10.0.0.1"); !ok {
			t.Fatalf("request %d within the token-issue window must pass", i+1)
		}
	}
	if _, ok := limiter.Allow(OpTokenIssue, "10.0.0.1"); ok {
		t.Fatalf("third token-issue request must be refused")
	}

	// A different IP has its own bucket.
	if _, ok := limiter.Allow(OpTokenIssue, "10.0.0.2"); !ok {
		t.Fatalf("other ip must not share the exhausted bucket")
	}
	// A different operation has its own bucket too.
	if _, ok := limiter.Allow(OpBallot, "10.0.0.1"); !ok {
		t.Fatalf("ballot bucket is independent of token-issue")
	}
}

func TestAllowReturnsRetryHint(t *testing.T) {
	limiter := New(Limits{AdminReset: 1, Window: time.Minute})
	defer limiter.Stop()

	if _, ok := limiter.Allow(OpAdminReset, "10.0.0.1"); !ok {
		t.Fatalf("first reset request must pass")
	}
	retryAfter, ok := limiter.Allow(OpAdminReset, "10.0.0.1")
	if ok {
		t.Fatalf("second reset request must be refused")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retry hint %v must fall inside the window", retryAfter)
	}
}

func TestZeroLimitDisablesOperation(t *testing.T) {
	limiter := New(Limits{Window: time.Minute})
	defer limiter.Stop()
	for i := 0; i < 100; i++ {
		if _, ok := limiter.Allow(OpAuth, "10.0.0.1"); !ok {
			t.Fatalf("unconfigured operation must never be limited")
		}
	}
}

package github

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	gogithub "github.com/google/go-github/v66/github"
)

func errorResponse(status int) error {
	return &gogithub.ErrorResponse{
		Response: &http.Response{
			StatusCode: status,
			Request:    &http.Request{},
		},
		Message: http.StatusText(status),
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "unauthorized", err: errorResponse(401), want: false},
		{name: "forbidden", err: errorResponse(403), want: false},
		{name: "not found", err: errorResponse(404), want: false},
		{name: "unprocessable", err: errorResponse(422), want: false},
		{name: "server error", err: errorResponse(502), want: true},
		{name: "wrapped permanent error", err: fmt.Errorf("fetch pr: %w", errorResponse(404)), want: false},
		{
			name: "rate limit error type",
			err:  &gogithub.RateLimitError{Response: &http.Response{StatusCode: 403, Request: &http.Request{}}},
			want: true,
		},
		{
			name: "abuse rate limit error type",
			err:  &gogithub.AbuseRateLimitError{Response: &http.Response{StatusCode: 403, Request: &http.Request{}}},
			want: true,
		},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "timeout", err: errors.New("net/http: request timeout"), want: true},
		{name: "unexpected EOF", err: errors.New("unexpected EOF"), want: true},
		{name: "graphql not found message", err: errors.New("Could not resolve to a PullRequest with the number of 999."), want: false},
		{name: "bad credentials message", err: errors.New("401 Bad credentials"), want: false},
		{name: "unknown error", err: errors.New("something odd happened"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		return errorResponse(404)
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error should not be retried, got %d calls", calls)
	}
}

func TestRetryWithBackoffSucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetryWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		return errors.New("i/o timeout")
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != fetchMaxAttempts {
		t.Errorf("expected %d attempts, got %d", fetchMaxAttempts, calls)
	}
}

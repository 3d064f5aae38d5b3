package github

import (
	"errors"
	"log"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v66/github"
)

const (
	// Bounded retry for GitHub data fetches: 3 attempts with exponential
	// backoff clamped between 1s and 5s.
	fetchMaxAttempts  = 3
	fetchInitialDelay = 1 * time.Second
	fetchMaxDelay     = 5 * time.Second
)

// retryWithBackoff executes fn up to fetchMaxAttempts times, backing off
// exponentially between attempts. Only transient errors are retried; a
// permanent error fails immediately.
func retryWithBackoff(fn func() error) error {
	var lastErr error
	delay := fetchInitialDelay

	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		if attempt > 1 {
			log.Printf("[Retry] Attempt %d/%d after %v delay", attempt, fetchMaxAttempts, delay)
			time.Sleep(delay)
			delay *= 2
			if delay > fetchMaxDelay {
				delay = fetchMaxDelay
			}
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				log.Printf("[Retry] Succeeded on attempt %d/%d", attempt, fetchMaxAttempts)
			}
			return nil
		}

		if !isRetryableError(lastErr) {
			log.Printf("[Retry] Non-retryable error, failing immediately: %v", lastErr)
			return lastErr
		}

		if attempt < fetchMaxAttempts {
			log.Printf("[Retry] Retryable error on attempt %d/%d: %v", attempt, fetchMaxAttempts, lastErr)
		}
	}

	log.Printf("[Retry] All %d attempts failed, giving up", fetchMaxAttempts)
	return lastErr
}

// isRetryableError determines if an error should trigger a retry.
// Rate limiting and transient network failures are retryable; client errors
// (401, 403, 404, 422) are permanent and never retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Rate limiting is transient even though it arrives as a 403.
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case 401, 403, 404, 422:
			return false
		}
		return respErr.Response.StatusCode >= 500
	}

	errStr := strings.ToLower(err.Error())

	// Permanent GraphQL failures come back as message strings.
	permanentPatterns := []string{
		"could not resolve to a",
		"not found",
		"unprocessable",
		"bad credentials",
		"forbidden",
	}
	for _, pattern := range permanentPatterns {
		if strings.Contains(errStr, pattern) {
			return false
		}
	}

	retryablePatterns := []string{
		"eof",
		"timeout",
		"connection refused",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"rate limit",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestSnippet(t *testing.T) {
	testCases := []struct {
		input    string
		max      int
		expected string
	}{
		{"short text", 100, "short text"},
		{"", 100, ""},
		{"  trimmed  ", 100, "trimmed"},
		{"long text that should be truncated", 10, "long text …"},
	}

	for _, tc := range testCases {
		result := snippet([]byte(tc.input), tc.max)
		if result != tc.expected {
			t.Errorf("snippet(%q, %d) = %q, want %q", tc.input, tc.max, result, tc.expected)
		}
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{
		Method:     "GET",
		URL:        "https://canvas.test/api/v1/files/999",
		StatusCode: 404,
		Body:       []byte("Not Found"),
	}

	expected := "http error: GET https://canvas.test/api/v1/files/999 status=404 body=Not Found"
	if err.Error() != expected {
		t.Errorf("HTTPError.Error() = %q, want %q", err.Error(), expected)
	}

	wrapped := fmt.Errorf("canvas: get file 999: %w", err)
	if StatusCode(wrapped) != 404 {
		t.Errorf("StatusCode(wrapped) = %d, want 404", StatusCode(wrapped))
	}
	if !IsNotFound(wrapped) {
		t.Error("Expected wrapped 404 to be reported as not found")
	}
	if StatusCode(errors.New("plain")) != 0 {
		t.Error("Expected 0 for errors without HTTPError")
	}
}

func TestWithAttempts(t *testing.T) {
	testCases := []struct {
		in, expected int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{4, 4},
	}
	for _, tc := range testCases {
		if got := WithAttempts(tc.in).MaxAttempts; got != tc.expected {
			t.Errorf("WithAttempts(%d).MaxAttempts = %d, want %d", tc.in, got, tc.expected)
		}
	}
	if NoRetry().MaxAttempts != 1 {
		t.Errorf("Expected NoRetry to allow exactly one attempt")
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxAttempts != 8 {
		t.Errorf("Expected MaxAttempts to be 8, got %d", cfg.MaxAttempts)
	}
	if cfg.BaseDelay != 700*time.Millisecond {
		t.Errorf("Expected BaseDelay to be 700ms, got %v", cfg.BaseDelay)
	}
	if !cfg.Retry5xx {
		t.Error("Expected Retry5xx to be true")
	}
	for _, status := range []int{429, 408, 425, 503, 502, 504} {
		if !cfg.RetryStatuses[status] {
			t.Errorf("Expected status %d to be retryable", status)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	cfg := DefaultRetryConfig()

	for i := 500; i <= 599; i++ {
		if !isRetryableStatus(i, cfg) {
			t.Errorf("Expected status %d to be retryable", i)
		}
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		if isRetryableStatus(status, cfg) {
			t.Errorf("Expected status %d to not be retryable", status)
		}
	}

	cfg.Retry5xx = false
	if isRetryableStatus(500, cfg) {
		t.Error("Expected status 500 to not be retryable when Retry5xx is false")
	}
	if !isRetryableStatus(429, cfg) {
		t.Error("Expected status 429 to be retryable regardless of Retry5xx")
	}
}

func TestIsRetryableNetErr(t *testing.T) {
	testCases := []struct {
		err      error
		expected bool
	}{
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{&timeoutError{}, true},
		{errors.New("connection reset by peer"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("some other error"), false},
	}
	for _, tc := range testCases {
		if got := isRetryableNetErr(tc.err); got != tc.expected {
			t.Errorf("isRetryableNetErr(%v) = %v, want %v", tc.err, got, tc.expected)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}

	resp.Header.Set(retryAfterHeader, "30")
	if d := ParseRetryAfter(resp); d != 30*time.Second {
		t.Errorf("Expected 30s, got %v", d)
	}

	resp.Header.Set(retryAfterHeader, time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	if d := ParseRetryAfter(resp); d != 0 {
		t.Errorf("Expected 0 for past date, got %v", d)
	}

	resp.Header.Set(retryAfterHeader, "invalid")
	if d := ParseRetryAfter(resp); d != 0 {
		t.Errorf("Expected 0 for invalid format, got %v", d)
	}

	resp.Header.Del(retryAfterHeader)
	if d := ParseRetryAfter(resp); d != 0 {
		t.Errorf("Expected 0 for empty header, got %v", d)
	}
}

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout error" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

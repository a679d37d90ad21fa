package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()
	transient := &RetryableError{Err: errors.New("timeout")}
	permanent := errors.New("not found")

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"success first try", nil, 1, nil},
		{"permanent error stops", []error{permanent}, 1, permanent},
		{"transient then success", []error{transient}, 2, nil},
		{"all attempts fail", []error{transient, transient, transient, transient}, 3, transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(ctx, 3, time.Millisecond, func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCheckResponse(t *testing.T) {
	u, _ := url.Parse("https://example.org/doc.xml")
	tests := []struct {
		code          int
		wantErr       bool
		wantRetryable bool
	}{
		{200, false, false},
		{204, false, false},
		{404, true, false},
		{429, true, true},
		{500, true, true},
		{503, true, true},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.code, Request: &http.Request{URL: u}}
		err := CheckResponse(resp)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckResponse(%d) = %v", tt.code, err)
			continue
		}
		if got := Retryable(err); err != nil && got != tt.wantRetryable {
			t.Errorf("CheckResponse(%d) retryable = %v, want %v", tt.code, got, tt.wantRetryable)
		}
		var se *StatusError
		if err != nil && (!errors.As(err, &se) || se.StatusCode != tt.code) {
			t.Errorf("CheckResponse(%d) should carry a StatusError: %v", tt.code, err)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestBackoff_Do(t *testing.T) {
	var attempts []int
	b := Backoff{Attempts: 4, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	err := b.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return timeoutErr{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	if len(attempts) != 3 || attempts[2] != 2 {
		t.Errorf("attempts = %v, want [0 1 2]", attempts)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"marked", &RetryableError{Err: errors.New("503")}, true},
		{"network timeout", timeoutErr{}, true},
		{"wrapped timeout", fmt.Errorf("fetch: %w", timeoutErr{}), true},
		{"plain", errors.New("bad request"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("%s: Retryable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

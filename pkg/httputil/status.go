package httputil

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// CheckResponse returns nil for 2xx responses and a [StatusError]
// otherwise. Server errors and 429 Too Many Requests are wrapped in
// [RetryableError].
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err := &StatusError{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &RetryableError{Err: err}
	}
	return err
}

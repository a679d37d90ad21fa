// Package httputil provides HTTP helpers for fetching remote documents.
//
// # Retry
//
// A [Backoff] re-runs an operation for transient failures only: errors
// wrapped in [RetryableError] and network timeouts. [CheckResponse] marks
// 5xx and 429 responses, so a fetch loop looks like:
//
//	err := httputil.DefaultBackoff.Do(ctx, func(attempt int) error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    if err := httputil.CheckResponse(resp); err != nil {
//	        return err
//	    }
//	    body, err = io.ReadAll(resp.Body)
//	    return err
//	})
//
// [DefaultBackoff] makes 3 attempts starting at one second.
package httputil

package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateNodeID validates a node identifier supplied from outside the
// process (HTTP path segments, CLI arguments).
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters
//   - Maximum length of 512 characters
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}
	if len(id) > 512 {
		return New(ErrCodeInvalidInput, "node id too long (max 512 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id contains invalid control characters")
		}
	}
	return nil
}

// ValidateSource validates a source identifier before it is handed to a
// provider. Sources are file paths or URLs; continuation tokens are sources
// too, so query strings are allowed.
//
// Validation rules:
//   - Source cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must parse as a URL or path
//
// Whether a scheme is supported is decided by the provider registry.
func ValidateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return New(ErrCodeInvalidSource, "source cannot be empty")
	}

	const maxSourceLength = 4096
	if len(source) > maxSourceLength {
		return New(ErrCodeInvalidSource, "source too long (max %d characters)", maxSourceLength)
	}

	for _, r := range source {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidSource, "source contains invalid characters")
		}
	}

	if _, err := url.Parse(source); err != nil {
		return Wrap(ErrCodeInvalidSource, err, "malformed source %q", source)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

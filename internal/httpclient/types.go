package httpclient

import "fmt"

// HTTPError is returned when an upstream answers with a non-200 status
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error. Credentials in the URL query are
// redacted before the URL is stored.
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        RedactURL(url),
		Message:    message,
	}
}

package notion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyID is returned when a page or block identifier is blank.
var ErrEmptyID = errors.New("notion: empty id")

// APIError is a non-2xx answer from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion api: status %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a Notion 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is an authentication or permission failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

package api

import (
	"errors"
	"fmt"
)

// APIError is the structured form of a non-2xx (or success=false) backend
// response. Message comes verbatim from the response body when present and
// is shown to users unchanged.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (%d)", e.Status)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// genericMessage is the fallback when the backend returns no usable body.
const genericMessage = "request failed, please try again"

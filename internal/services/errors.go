package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/catx/internal/shared"
)

// HTTPError is a non-2xx reply from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error   { return shared.ErrAPIRequest }
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// Reason is the backend message, or the status text when the reply carried none.
func (e *HTTPError) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

// newHTTPError extracts the message from a JSON {"message": ...} / {"error": ...} body or plain text.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: body}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = payload.Message
		if e.Message == "" {
			e.Message = payload.Error
		}
		return e
	}

	if text := strings.TrimSpace(string(body)); len(text) > 0 && len(text) <= 200 {
		e.Message = text
	}
	return e
}

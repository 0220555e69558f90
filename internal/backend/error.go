package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsuccessful  = errors.New("backend reported success=false")
	ErrMissingToken  = errors.New("auth token is required")
	ErrMissingTarget = errors.New("target identifier is required")
)

// APIError is returned for every non-2xx backend response.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	// OrderID is set when the backend created an order before failing.
	OrderID string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d", e.Op, e.StatusCode)
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

func (e *APIError) UserMessage() string { return e.Message }

// CreatedOrderIDs is the order the backend created before failing, if any.
func (e *APIError) CreatedOrderIDs() []string {
	if e.OrderID == "" {
		return nil
	}
	return []string{e.OrderID}
}

// CreateError is the final error of a payment creation that may have gone
// through several attempts. OrderIDs lists every order the backend reported
// across those attempts, in the order they were seen.
type CreateError struct {
	Err      error
	OrderIDs []string
}

func (e *CreateError) Error() string { return e.Err.Error() }

func (e *CreateError) Unwrap() error { return e.Err }

func (e *CreateError) CreatedOrderIDs() []string { return e.OrderIDs }

type errorBody struct {
	Error   any    `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	OrderID any    `json:"order_id"`
}

func newAPIError(op string, status int, body []byte) *APIError {
	apiErr := &APIError{Op: op, StatusCode: status, Body: body}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}

	switch v := eb.Error.(type) {
	case string:
		apiErr.Message = v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			apiErr.Message = msg
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = firstNonEmpty(eb.Message, eb.Detail)
	}

	switch v := eb.OrderID.(type) {
	case string:
		apiErr.OrderID = strings.TrimSpace(v)
	case float64:
		apiErr.OrderID = fmt.Sprintf("%.0f", v)
	}

	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

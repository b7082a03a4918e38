package examtie

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoToken is returned when an authenticated endpoint is called without a
// bearer token.
var ErrNoToken = errors.New("no authentication token")

// APIError is a non-2xx response from the ExamTie API with its detail message
// extracted.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// validationError is one entry of a FastAPI-style validation detail list.
type validationError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeAPIError turns a non-2xx response body into an *APIError. The detail
// field is either a plain string or a list of field-level validation errors;
// unparseable bodies fall back to the supplied generic message.
func decodeAPIError(statusCode int, body io.Reader, fallback string) *APIError {
	raw, err := io.ReadAll(body)
	if err != nil {
		return &APIError{StatusCode: statusCode, Detail: fallback}
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		return &APIError{StatusCode: statusCode, Detail: fallback}
	}

	var message string
	if err := json.Unmarshal(envelope.Detail, &message); err == nil {
		if strings.TrimSpace(message) == "" {
			message = fallback
		}
		return &APIError{StatusCode: statusCode, Detail: message}
	}

	var fields []validationError
	if err := json.Unmarshal(envelope.Detail, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			locs := make([]string, 0, len(f.Loc))
			for _, l := range f.Loc {
				locs = append(locs, fmt.Sprint(l))
			}
			parts = append(parts, fmt.Sprintf("%s - %s", strings.Join(locs, "."), f.Msg))
		}
		return &APIError{StatusCode: statusCode, Detail: strings.Join(parts, ", ")}
	}

	return &APIError{StatusCode: statusCode, Detail: fallback}
}

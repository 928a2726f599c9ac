// Package codec renders gateway errors as JSON HTTP responses.
package codec

import (
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
)

// ErrorResponse is a serialized error ready to be written.
type ErrorResponse struct {
	StatusCode int
	Body       []byte
}

type errorEnvelope struct {
	Error *domain.APIError `json:"error"`
}

// FormatError converts err to {"error":{"type","message","upstream_status"}}.
// Errors that are not *domain.APIError become server errors.
func FormatError(err error) *ErrorResponse {
	apiErr := domain.ToAPIError(err)

	body, mErr := json.Marshal(errorEnvelope{Error: apiErr})
	if mErr != nil {
		body = []byte(`{"error":{"type":"server","message":"internal error"}}`)
	}

	return &ErrorResponse{
		StatusCode: apiErr.HTTPStatusCode(),
		Body:       body,
	}
}

// WriteError writes err as a JSON error response. It must be called before
// any body bytes have been written.
func WriteError(w http.ResponseWriter, err error) {
	resp := FormatError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

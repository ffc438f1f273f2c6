package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/wallet-flow-tracker/internal/errors"
)

// ErrorBody is the JSON shape of an API error response.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps an error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError maps an error through the taxonomy and sends it.
func respondError(w http.ResponseWriter, err error) {
	catErr := apperrors.Categorize(err)
	respondJSON(w, catErr.StatusCode, ErrorResponse{
		Error: ErrorBody{
			Code:    catErr.Code,
			Message: catErr.Message,
			Details: catErr.Details,
		},
	})
}

// respondErrorWith sends an explicit error without taxonomy mapping.
func respondErrorWith(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message},
	})
}

// parseJSONBody parses a JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

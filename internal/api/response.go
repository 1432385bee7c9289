package api

import (
	"time"

	"github.com/schedcu/v2/internal/validation"
)

// APIResponse is the standard response format for all endpoints.
type APIResponse struct {
	Data             interface{}       `json:"data,omitempty"`
	ValidationResult *validation.Result `json:"validation,omitempty"`
	Error            *ErrorResponse    `json:"error,omitempty"`
	Meta             ResponseMeta      `json:"meta"`
}

// ErrorResponse contains error details.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// SuccessResponse returns a successful APIResponse, optionally carrying a
// validation.Result (e.g. preflight warnings) alongside the payload.
func SuccessResponse(data interface{}, result *validation.Result) *APIResponse {
	if result == nil {
		result = validation.NewResult()
	}
	return &APIResponse{
		Data:             data,
		ValidationResult: result,
		Meta: ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "1.0",
		},
	}
}

// ErrorResponseWithCode returns an error APIResponse.
func ErrorResponseWithCode(code, message string) *APIResponse {
	return &APIResponse{
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
		},
		Meta: ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "1.0",
		},
	}
}

// ValidationErrorResponse returns an APIResponse carrying a validation.Result
// that already failed (HasErrors() true).
func ValidationErrorResponse(result *validation.Result) *APIResponse {
	return &APIResponse{
		ValidationResult: result,
		Meta: ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "1.0",
		},
	}
}

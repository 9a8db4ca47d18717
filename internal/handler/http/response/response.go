package response

import (
	"encoding/json"
	"net/http"
)

type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fallback := Response{
			Success: false,
			Error: &ErrorDetail{
				Code:    "ENCODING_ERROR",
				Message: "Failed to encode response",
			},
		}
		_ = json.NewEncoder(w).Encode(fallback)
	}
}

func writeError(w http.ResponseWriter, statusCode int, detail ErrorDetail) {
	writeJSON(w, statusCode, Response{
		Success: false,
		Error:   &detail,
	})
}

// Success responses
func Success(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error responses
func BadRequest(w http.ResponseWriter, message string, details map[string]any) {
	writeError(w, http.StatusBadRequest, ErrorDetail{
		Code:    "BAD_REQUEST",
		Message: message,
		Details: details,
	})
}

func ValidationError(w http.ResponseWriter, details map[string]string) {
	converted := make(map[string]any, len(details))
	for k, v := range details {
		converted[k] = v
	}
	writeError(w, http.StatusUnprocessableEntity, ErrorDetail{
		Code:    "VALIDATION_ERROR",
		Message: "Validation failed",
		Details: converted,
	})
}

func Unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrorDetail{
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// Forbidden uses a caller-supplied code so devices can branch on it (PIN_CHANGE_REQUIRED, ...).
func Forbidden(w http.ResponseWriter, code string, message string, details map[string]any) {
	if code == "" {
		code = "FORBIDDEN"
	}
	writeError(w, http.StatusForbidden, ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func NotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrorDetail{
		Code:    "NOT_FOUND",
		Message: message,
	})
}

func Conflict(w http.ResponseWriter, code string, message string, details map[string]any) {
	if code == "" {
		code = "CONFLICT"
	}
	writeError(w, http.StatusConflict, ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func TooManyRequests(w http.ResponseWriter, code string, message string, details map[string]any) {
	writeError(w, http.StatusTooManyRequests, ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func InternalServerError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrorDetail{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: message,
	})
}

// ServiceUnavailable reports a transient store failure the device may retry.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrorDetail{
		Code:      "STORE_UNAVAILABLE",
		Message:   message,
		Retryable: true,
	})
}

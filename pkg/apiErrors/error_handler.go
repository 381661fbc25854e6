package apiErrors

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// Authentication
	ErrInvalidCredentials    = "AUTH_001"
	ErrUserDisabled          = "AUTH_002"
	ErrUserNotFound          = "AUTH_003"
	ErrInvalidToken          = "AUTH_006"
	ErrExpiredToken          = "AUTH_007"
	ErrInsufficientPrivilege = "AUTH_008"
	ErrUserAlreadyExists     = "AUTH_009"

	// Validation
	ErrInvalidRequest      = "VAL_001"
	ErrMissingRequiredData = "VAL_002"
	ErrInvalidFormat       = "VAL_003"
	ErrNotFound            = "VAL_004"
	ErrMethodNotAllowed    = "VAL_005"

	// Webhooks
	ErrMissingSignature = "WHK_001"
	ErrInvalidSignature = "WHK_002"
	ErrInvalidMetadata  = "WHK_003"
	ErrPayloadTooLarge  = "WHK_004"

	// Billing provider
	ErrNotConnected     = "BIL_001"
	ErrProviderAuth     = "BIL_002"
	ErrProviderTimeout  = "BIL_003"
	ErrRateLimited      = "BIL_004"
	ErrProviderRejected = "BIL_005"

	// Server
	ErrInternalServer    = "SRV_001"
	ErrDatabaseOperation = "SRV_002"
	ErrExternalService   = "SRV_003"
	ErrCommunication     = "SRV_004"
)

var httpStatusMap = map[string]int{
	ErrInvalidCredentials:    http.StatusUnauthorized,
	ErrUserDisabled:          http.StatusForbidden,
	ErrUserNotFound:          http.StatusNotFound,
	ErrInvalidToken:          http.StatusUnauthorized,
	ErrExpiredToken:          http.StatusUnauthorized,
	ErrInsufficientPrivilege: http.StatusForbidden,
	ErrUserAlreadyExists:     http.StatusBadRequest,
	ErrInvalidRequest:        http.StatusBadRequest,
	ErrMissingRequiredData:   http.StatusBadRequest,
	ErrInvalidFormat:         http.StatusBadRequest,
	ErrNotFound:              http.StatusNotFound,
	ErrMethodNotAllowed:      http.StatusMethodNotAllowed,
	ErrMissingSignature:      http.StatusBadRequest,
	ErrInvalidSignature:      http.StatusBadRequest,
	ErrInvalidMetadata:       http.StatusBadRequest,
	ErrPayloadTooLarge:       http.StatusRequestEntityTooLarge,
	ErrNotConnected:          http.StatusConflict,
	ErrProviderAuth:          http.StatusConflict,
	ErrProviderTimeout:       http.StatusGatewayTimeout,
	ErrRateLimited:           http.StatusTooManyRequests,
	ErrProviderRejected:      http.StatusUnprocessableEntity,
	ErrInternalServer:        http.StatusInternalServerError,
	ErrDatabaseOperation:     http.StatusInternalServerError,
	ErrExternalService:       http.StatusBadGateway,
	ErrCommunication:         http.StatusServiceUnavailable,
}

// APIError is the JSON envelope for every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// StatusFor returns the HTTP status mapped to code, 500 when unmapped.
func StatusFor(code string) int {
	status, exists := httpStatusMap[code]
	if !exists {
		return http.StatusInternalServerError
	}
	return status
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, code string, message string, details any) {
	apiErr := APIError{
		Code:    code,
		Message: message,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(code))
	_ = json.NewEncoder(w).Encode(apiErr)
}

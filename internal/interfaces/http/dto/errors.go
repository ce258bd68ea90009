package dto

import "net/http"

// Standard API error codes. Handlers translate domain error codes into
// these before picking an HTTP status.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBusinessRule        = "ERR_BUSINESS_RULE"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to 500
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain-layer error codes to API error codes.
// Domain codes not listed here pass through unchanged.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":           ErrCodeNotFound,
	"INVOICE_NOT_FOUND":   ErrCodeNotFound,
	"QUOTATION_NOT_FOUND": ErrCodeNotFound,

	// A missing service record is bad request input on issuance, not a
	// failed path lookup.
	"SERVICE_NOT_FOUND": ErrCodeInvalidInput,

	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"DUPLICATE_INVOICE_NUMBER": ErrCodeConflict,
	"OPTIMISTIC_LOCK_ERROR":    ErrCodeConcurrencyConflict,

	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_REASON":         ErrCodeInvalidInput,
	"INVALID_INVOICE_NUMBER": ErrCodeInvalidInput,
	"INVALID_CUSTOMER":       ErrCodeInvalidInput,
	"INVALID_LINES":          ErrCodeInvalidInput,
	"VALIDATION_ERROR":       ErrCodeValidation,

	"INVALID_STATE":        ErrCodeInvalidState,
	"SERVICE_NOT_BILLABLE": ErrCodeBusinessRule,
	"MULTIPLE_CUSTOMERS":   ErrCodeBusinessRule,

	"INTERNAL_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its API equivalent
func NormalizeErrorCode(code string) string {
	if normalized, ok := DomainErrorCodeMapping[code]; ok {
		return normalized
	}
	return code
}

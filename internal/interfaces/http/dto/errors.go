package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here fall through to 422: an unmapped code means a
// business rule rejected the operation, not that the request was malformed.
var errorCodeHTTPStatus = map[string]int{
	// General
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Resource lookup
	ErrCodeNotFound:   http.StatusNotFound,
	"BATCH_NOT_FOUND": http.StatusNotFound,
	"LINE_NOT_FOUND":  http.StatusNotFound,

	// Optimistic locking
	"ALREADY_EXISTS":         http.StatusConflict,
	"CONCURRENCY_CONFLICT":   http.StatusConflict,
	"OPTIMISTIC_LOCK_FAILED": http.StatusConflict,

	// Malformed input
	ErrCodeValidation:         http.StatusBadRequest,
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_BATCH_NUMBER":    http.StatusBadRequest,
	"INVALID_QUANTITY":        http.StatusBadRequest,
	"INVALID_COST":            http.StatusBadRequest,
	"INVALID_DELTA":           http.StatusBadRequest,
	"INVALID_MEDICINE":        http.StatusBadRequest,
	"INVALID_LOCATION":        http.StatusBadRequest,
	"INVALID_LOCATION_KIND":   http.StatusBadRequest,
	"INVALID_SHOP":            http.StatusBadRequest,
	"INVALID_WAREHOUSE":       http.StatusBadRequest,
	"INVALID_PRIORITY":        http.StatusBadRequest,
	"INVALID_LINES":           http.StatusBadRequest,
	"INVALID_LINE":            http.StatusBadRequest,
	"INVALID_STRATEGY":        http.StatusBadRequest,
	"INVALID_ADJUSTMENT_TYPE": http.StatusBadRequest,
	"DUPLICATE_LINE":          http.StatusBadRequest,
	"REASON_REQUIRED":         http.StatusBadRequest,

	// Business rules
	"INVALID_STATE":          http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK":     http.StatusUnprocessableEntity,
	"WOULD_GO_NEGATIVE":      http.StatusUnprocessableEntity,
	"ALLOCATION_FAILED":      http.StatusUnprocessableEntity,
	"NO_ALLOCATIONS":         http.StatusUnprocessableEntity,
	"LINES_PENDING":          http.StatusUnprocessableEntity,
	"BATCH_MISMATCH":         http.StatusUnprocessableEntity,
	"LOCATION_KIND_MISMATCH": http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}

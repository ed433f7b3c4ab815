package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// Sort fields come from query strings and must never reach SQL unchecked.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// BatchSortFields contains allowed sort fields for stock batches
var BatchSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"batch_number":     true,
	"expiry_date":      true,
	"quantity_on_hand": true,
	"unit_cost":        true,
}

// AdjustmentSortFields contains allowed sort fields for stock adjustments
var AdjustmentSortFields = map[string]bool{
	"id":          true,
	"adjusted_at": true,
	"delta":       true,
}

// RequestSortFields contains allowed sort fields for purchase requests
var RequestSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"priority":    true,
	"status":      true,
	"approved_at": true,
}

// DispatchSortFields contains allowed sort fields for dispatches
var DispatchSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"status":       true,
	"delivered_at": true,
}

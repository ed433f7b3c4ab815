package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder("asc"))
	assert.Equal(t, "ASC", ValidateSortOrder(" ASC "))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
	assert.Equal(t, "DESC", ValidateSortOrder("ascending; DROP TABLE batches"))
}

func TestValidateSortField(t *testing.T) {
	t.Run("accepts whitelisted fields", func(t *testing.T) {
		assert.Equal(t, "expiry_date", ValidateSortField("expiry_date", BatchSortFields, "created_at"))
		assert.Equal(t, "approved_at", ValidateSortField("approved_at", RequestSortFields, "created_at"))
	})

	t.Run("falls back on unknown or empty fields", func(t *testing.T) {
		assert.Equal(t, "created_at", ValidateSortField("", BatchSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("   ", BatchSortFields, "created_at"))
		assert.Equal(t, "adjusted_at", ValidateSortField("delta; --", AdjustmentSortFields, "adjusted_at"))
		assert.Equal(t, "created_at", ValidateSortField("1 OR 1=1", DispatchSortFields, "created_at"))
	})
}

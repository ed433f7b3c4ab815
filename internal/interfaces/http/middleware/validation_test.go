package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmerp/backend/internal/interfaces/http/dto"
)

type createBatchForm struct {
	MedicineID string  `json:"medicine_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0,wholeunits"`
	Priority   string  `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/batches", func(c *gin.Context) {
		var form createBatchForm
		if err := c.ShouldBindJSON(&form); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(nil))
	})

	t.Run("reports each failed field with its JSON name", func(t *testing.T) {
		body := `{"medicine_id": "not-a-uuid", "quantity": 0, "priority": "SOMEDAY"}`
		req := httptest.NewRequest("POST", "/batches", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		fields := make(map[string]string)
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Contains(t, fields, "medicine_id")
		assert.Contains(t, fields, "quantity")
		assert.Contains(t, fields, "priority")
		assert.Equal(t, "Invalid UUID format", fields["medicine_id"])
		assert.Contains(t, fields["priority"], "Must be one of:")
	})

	t.Run("missing required fields are reported", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/batches", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)

		var messages []string
		for _, d := range resp.Error.Details {
			messages = append(messages, d.Message)
		}
		assert.Contains(t, messages, "This field is required")
	})

	t.Run("fractional quantities are rejected", func(t *testing.T) {
		body := `{"medicine_id": "7a39c0f6-5f35-47a9-9e18-1d1f0d2f3a44", "quantity": 2.5}`
		req := httptest.NewRequest("POST", "/batches", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "quantity", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be a whole number of units", resp.Error.Details[0].Message)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		body := `{"medicine_id": "7a39c0f6-5f35-47a9-9e18-1d1f0d2f3a44", "quantity": 3, "priority": "HIGH"}`
		req := httptest.NewRequest("POST", "/batches", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("non-validator errors still produce the standard envelope", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/batches", strings.NewReader(`{not json`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/pharmerp/backend/internal/application/ledger"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// parseDate parses a date string in RFC3339 or plain date format
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// LedgerHandler handles stock entry and batch query endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// StockEntryRequest is the body for receiving stock into a location
type StockEntryRequest struct {
	LocationID   string  `json:"location_id" binding:"required,uuid"`
	LocationKind string  `json:"location_kind" binding:"required,oneof=WAREHOUSE SHOP"`
	MedicineID   string  `json:"medicine_id" binding:"required,uuid"`
	BatchNumber  string  `json:"batch_number" binding:"required,min=1,max=100"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0,wholeunits"`
	UnitCost     float64 `json:"unit_cost" binding:"gte=0"`
	ExpiryDate   string  `json:"expiry_date"`
	Rack         string  `json:"rack" binding:"max=100"`
}

// BatchListRequest holds query parameters for batch listing
type BatchListRequest struct {
	dto.ListRequest
	LocationID string `form:"location_id" binding:"required,uuid"`
	MedicineID string `form:"medicine_id" binding:"omitempty,uuid"`
}

// CreateStockEntry handles POST /stock-entries. Receiving the same batch
// number at the same location merges into the existing batch row.
func (h *LedgerHandler) CreateStockEntry(c *gin.Context) {
	var req StockEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}
	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		h.BadRequest(c, "Invalid medicine ID format")
		return
	}

	var expiryDate *time.Time
	if req.ExpiryDate != "" {
		t, err := parseDate(req.ExpiryDate)
		if err != nil {
			h.BadRequest(c, "Invalid expiry date format")
			return
		}
		expiryDate = &t
	}

	batch, err := h.ledgerService.Credit(c.Request.Context(), ledgerapp.CreditCommand{
		LocationID:   locationID,
		LocationKind: ledger.LocationKind(req.LocationKind),
		MedicineID:   medicineID,
		BatchNumber:  req.BatchNumber,
		Quantity:     decimal.NewFromFloat(req.Quantity),
		ExpiryDate:   expiryDate,
		UnitCost:     decimal.NewFromFloat(req.UnitCost),
		Rack:         req.Rack,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, batch)
}

// ListBatches handles GET /batches. Results are ordered by expiry date
// ascending with never-expiring batches last, then by batch number.
func (h *LedgerHandler) ListBatches(c *gin.Context) {
	var req BatchListRequest
	req.ListRequest = dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	if req.MedicineID != "" {
		medicineID, err := uuid.Parse(req.MedicineID)
		if err != nil {
			h.BadRequest(c, "Invalid medicine ID format")
			return
		}
		batches, err := h.ledgerService.ListBatches(c.Request.Context(), locationID, medicineID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, batches)
		return
	}

	filter := buildFilter(req.ListRequest)
	batches, total, err := h.ledgerService.ListLocationBatches(c.Request.Context(), locationID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, batches, total, filter.Page, filter.PageSize)
}

// ListExpiringBatches handles GET /batches/expiring
func (h *LedgerHandler) ListExpiringBatches(c *gin.Context) {
	var req struct {
		dto.ListRequest
		WithinDays int `form:"within_days" binding:"omitempty,min=1,max=3650"`
	}
	req.ListRequest = dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if req.WithinDays == 0 {
		req.WithinDays = 90
	}

	filter := buildFilter(req.ListRequest)
	batches, err := h.ledgerService.ExpiringBatches(c.Request.Context(), req.WithinDays, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

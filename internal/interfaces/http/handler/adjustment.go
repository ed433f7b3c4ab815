package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/pharmerp/backend/internal/application/ledger"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// AdjustmentHandler handles stock adjustment endpoints
type AdjustmentHandler struct {
	BaseHandler
	adjustmentService *ledgerapp.AdjustmentService
}

// NewAdjustmentHandler creates a new AdjustmentHandler
func NewAdjustmentHandler(adjustmentService *ledgerapp.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{adjustmentService: adjustmentService}
}

// AdjustStockRequest is the body for a manual stock correction
type AdjustStockRequest struct {
	LocationID string  `json:"location_id" binding:"required,uuid"`
	MedicineID string  `json:"medicine_id" binding:"required,uuid"`
	BatchID    string  `json:"batch_id" binding:"required,uuid"`
	Type       string  `json:"type" binding:"required,oneof=INCREASE DECREASE"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0,wholeunits"`
	Reason     string  `json:"reason" binding:"required,min=1,max=255"`
	Actor      string  `json:"actor" binding:"max=100"`
}

// AdjustStock handles POST /adjustments
func (h *AdjustmentHandler) AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
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
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	adjustment, err := h.adjustmentService.Adjust(c.Request.Context(), ledgerapp.AdjustCommand{
		LocationID: locationID,
		MedicineID: medicineID,
		BatchID:    batchID,
		Type:       ledger.AdjustmentType(req.Type),
		Quantity:   decimal.NewFromFloat(req.Quantity),
		Reason:     req.Reason,
		Actor:      req.Actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, adjustment)
}

// ListAdjustments handles GET /adjustments
func (h *AdjustmentHandler) ListAdjustments(c *gin.Context) {
	var req struct {
		dto.ListRequest
		LocationID string `form:"location_id" binding:"required,uuid"`
		MedicineID string `form:"medicine_id" binding:"omitempty,uuid"`
	}
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

	filter := buildFilter(req.ListRequest)
	if req.MedicineID != "" {
		filter.Filters["medicine_id"] = req.MedicineID
	}

	adjustments, total, err := h.adjustmentService.ListByLocation(c.Request.Context(), locationID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, adjustments, total, filter.Page, filter.PageSize)
}

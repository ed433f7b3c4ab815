package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fulfillmentapp "github.com/pharmerp/backend/internal/application/fulfillment"
	"github.com/pharmerp/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// DispatchHandler handles dispatch endpoints
type DispatchHandler struct {
	BaseHandler
	dispatchService *fulfillmentapp.DispatchService
}

// NewDispatchHandler creates a new DispatchHandler
func NewDispatchHandler(dispatchService *fulfillmentapp.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatchService: dispatchService}
}

// AdHocLineBody is one medicine line of an ad-hoc dispatch
type AdHocLineBody struct {
	MedicineID string  `json:"medicine_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0,wholeunits"`
}

// CreateDispatchBody is the body for creating a dispatch. Either request_id
// (consume an approved request's allocations) or warehouse_id, shop_id and
// lines (ad-hoc, reserves stock at creation) must be given.
type CreateDispatchBody struct {
	RequestID   string          `json:"request_id" binding:"omitempty,uuid"`
	WarehouseID string          `json:"warehouse_id" binding:"omitempty,uuid"`
	ShopID      string          `json:"shop_id" binding:"omitempty,uuid"`
	Lines       []AdHocLineBody `json:"lines" binding:"omitempty,dive"`
}

// ReceiveLineBody is the body for acknowledging one dispatch line
type ReceiveLineBody struct {
	RackHint string `json:"rack_hint" binding:"max=100"`
}

// CreateDispatch handles POST /dispatches
func (h *DispatchHandler) CreateDispatch(c *gin.Context) {
	var req CreateDispatchBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if req.RequestID != "" {
		requestID, err := uuid.Parse(req.RequestID)
		if err != nil {
			h.BadRequest(c, "Invalid request ID format")
			return
		}
		dispatch, err := h.dispatchService.CreateFromRequest(c.Request.Context(), requestID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, dispatch)
		return
	}

	if req.WarehouseID == "" || req.ShopID == "" || len(req.Lines) == 0 {
		h.BadRequest(c, "Either request_id or warehouse_id, shop_id and lines are required")
		return
	}
	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		h.BadRequest(c, "Invalid shop ID format")
		return
	}

	lines := make([]fulfillmentapp.AdHocLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		medicineID, err := uuid.Parse(l.MedicineID)
		if err != nil {
			h.BadRequest(c, "Invalid medicine ID format")
			return
		}
		lines = append(lines, fulfillmentapp.AdHocLineInput{
			MedicineID: medicineID,
			Quantity:   decimal.NewFromFloat(l.Quantity),
		})
	}

	dispatch, err := h.dispatchService.CreateAdHoc(c.Request.Context(), fulfillmentapp.CreateAdHocDispatchCommand{
		WarehouseID: warehouseID,
		ShopID:      shopID,
		Lines:       lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dispatch)
}

// MarkInTransit handles POST /dispatches/:id/dispatch
func (h *DispatchHandler) MarkInTransit(c *gin.Context) {
	dispatchID, ok := h.parseID(c)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.MarkInTransit(c.Request.Context(), dispatchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dispatch)
}

// ReceiveLine handles POST /dispatches/:id/lines/:lineID/receive
func (h *DispatchHandler) ReceiveLine(c *gin.Context) {
	dispatchID, ok := h.parseID(c)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(c.Param("lineID"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	// Body is optional; a bare receive carries no rack hint
	var req ReceiveLineBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	dispatch, err := h.dispatchService.ReceiveLine(c.Request.Context(), fulfillmentapp.ReceiveLineCommand{
		DispatchID: dispatchID,
		LineID:     lineID,
		RackHint:   req.RackHint,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dispatch)
}

// MarkDelivered handles POST /dispatches/:id/deliver. Delivery credits the
// shop's stock per line; re-delivering an already delivered dispatch is a
// successful no-op.
func (h *DispatchHandler) MarkDelivered(c *gin.Context) {
	dispatchID, ok := h.parseID(c)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.MarkDelivered(c.Request.Context(), dispatchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dispatch)
}

// GetDispatch handles GET /dispatches/:id
func (h *DispatchHandler) GetDispatch(c *gin.Context) {
	dispatchID, ok := h.parseID(c)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.Get(c.Request.Context(), dispatchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dispatch)
}

// ListDispatches handles GET /dispatches
func (h *DispatchHandler) ListDispatches(c *gin.Context) {
	var req struct {
		dto.ListRequest
		ShopID    string `form:"shop_id" binding:"omitempty,uuid"`
		RequestID string `form:"request_id" binding:"omitempty,uuid"`
		Status    string `form:"status" binding:"omitempty,oneof=CREATED IN_TRANSIT DELIVERED"`
	}
	req.ListRequest = dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if req.RequestID != "" {
		requestID, err := uuid.Parse(req.RequestID)
		if err != nil {
			h.BadRequest(c, "Invalid request ID format")
			return
		}
		dispatches, err := h.dispatchService.ListByRequest(c.Request.Context(), requestID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dispatches)
		return
	}

	filter := buildFilter(req.ListRequest)
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}

	if req.ShopID != "" {
		shopID, err := uuid.Parse(req.ShopID)
		if err != nil {
			h.BadRequest(c, "Invalid shop ID format")
			return
		}
		dispatches, err := h.dispatchService.ListByShop(c.Request.Context(), shopID, filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dispatches)
		return
	}

	dispatches, total, err := h.dispatchService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dispatches, total, filter.Page, filter.PageSize)
}

// parseID parses the :id path parameter, replying 400 when malformed
func (h *DispatchHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid dispatch ID format")
		return uuid.Nil, false
	}
	return id, true
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fulfillmentapp "github.com/pharmerp/backend/internal/application/fulfillment"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// RequestHandler handles purchase request endpoints
type RequestHandler struct {
	BaseHandler
	requestService *fulfillmentapp.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requestService *fulfillmentapp.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// RequestLineBody is one medicine line of a new purchase request
type RequestLineBody struct {
	MedicineID string  `json:"medicine_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0,wholeunits"`
}

// CreateRequestBody is the body for filing a purchase request
type CreateRequestBody struct {
	ShopID      string            `json:"shop_id" binding:"required,uuid"`
	WarehouseID string            `json:"warehouse_id" binding:"required,uuid"`
	Priority    string            `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Lines       []RequestLineBody `json:"lines" binding:"required,min=1,dive"`
}

// ApproveLineBody carries the approved quantity for one medicine
type ApproveLineBody struct {
	MedicineID string  `json:"medicine_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0,wholeunits"`
}

// ApproveRequestBody is the body for approving a purchase request.
// An empty line list approves every line at its requested quantity.
type ApproveRequestBody struct {
	Lines []ApproveLineBody `json:"lines" binding:"omitempty,dive"`
}

// CreateRequest handles POST /requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req CreateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		h.BadRequest(c, "Invalid shop ID format")
		return
	}
	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}

	priority := fulfillment.RequestPriorityNormal
	if req.Priority != "" {
		priority = fulfillment.RequestPriority(req.Priority)
	}

	lines := make([]fulfillmentapp.RequestLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		medicineID, err := uuid.Parse(l.MedicineID)
		if err != nil {
			h.BadRequest(c, "Invalid medicine ID format")
			return
		}
		lines = append(lines, fulfillmentapp.RequestLineInput{
			MedicineID: medicineID,
			Quantity:   decimal.NewFromFloat(l.Quantity),
		})
	}

	request, err := h.requestService.Create(c.Request.Context(), fulfillmentapp.CreateRequestCommand{
		ShopID:      shopID,
		WarehouseID: warehouseID,
		Priority:    priority,
		Lines:       lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, request)
}

// ApproveRequest handles POST /requests/:id/approve. Approval reserves
// warehouse stock for every approved line in one transaction.
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	requestID, ok := h.parseID(c)
	if !ok {
		return
	}

	// Body is optional; approving without one approves all lines as requested
	var req ApproveRequestBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	lines := make([]fulfillmentapp.ApproveLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		medicineID, err := uuid.Parse(l.MedicineID)
		if err != nil {
			h.BadRequest(c, "Invalid medicine ID format")
			return
		}
		lines = append(lines, fulfillmentapp.ApproveLineInput{
			MedicineID: medicineID,
			Quantity:   decimal.NewFromFloat(l.Quantity),
		})
	}

	request, err := h.requestService.Approve(c.Request.Context(), fulfillmentapp.ApproveRequestCommand{
		RequestID: requestID,
		Lines:     lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, request)
}

// RejectRequest handles POST /requests/:id/reject
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	requestID, ok := h.parseID(c)
	if !ok {
		return
	}

	request, err := h.requestService.Reject(c.Request.Context(), requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, request)
}

// AbandonRequest handles POST /requests/:id/abandon. Abandoning an approved
// request releases its reserved stock back to the source batches.
func (h *RequestHandler) AbandonRequest(c *gin.Context) {
	requestID, ok := h.parseID(c)
	if !ok {
		return
	}

	request, err := h.requestService.Abandon(c.Request.Context(), requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, request)
}

// GetRequest handles GET /requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	requestID, ok := h.parseID(c)
	if !ok {
		return
	}

	request, err := h.requestService.Get(c.Request.Context(), requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, request)
}

// GetRequestAllocations handles GET /requests/:id/allocations
func (h *RequestHandler) GetRequestAllocations(c *gin.Context) {
	requestID, ok := h.parseID(c)
	if !ok {
		return
	}

	allocations, err := h.requestService.GetAllocations(c.Request.Context(), requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocations)
}

// ListRequests handles GET /requests
func (h *RequestHandler) ListRequests(c *gin.Context) {
	var req struct {
		dto.ListRequest
		ShopID string `form:"shop_id" binding:"omitempty,uuid"`
		Status string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED ABANDONED DISPATCHED"`
	}
	req.ListRequest = dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := buildFilter(req.ListRequest)

	if req.ShopID != "" {
		shopID, err := uuid.Parse(req.ShopID)
		if err != nil {
			h.BadRequest(c, "Invalid shop ID format")
			return
		}
		if req.Status != "" {
			filter.Filters["status"] = req.Status
		}
		requests, err := h.requestService.ListByShop(c.Request.Context(), shopID, filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, requests)
		return
	}

	if req.Status != "" {
		requests, err := h.requestService.ListByStatus(c.Request.Context(), fulfillment.RequestStatus(req.Status), filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, requests)
		return
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, requests, total, filter.Page, filter.PageSize)
}

// parseID parses the :id path parameter, replying 400 when malformed
func (h *RequestHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID format")
		return uuid.Nil, false
	}
	return id, true
}

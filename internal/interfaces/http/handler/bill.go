package handler

import (
	"time"

	appbill "github.com/erp/billhub/internal/application/bill"
	"github.com/erp/billhub/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// BillHandler exposes the bill operations over HTTP
type BillHandler struct {
	BaseHandler
	svc *appbill.BillService
	now func() time.Time
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(svc *appbill.BillService) *BillHandler {
	return &BillHandler{svc: svc, now: time.Now}
}

// ExportBillRequest optionally pins the export timestamp
// @name HandlerExportBillRequest
type ExportBillRequest struct {
	// ExportTime defaults to the time the request is served
	ExportTime *time.Time `json:"export_time" example:"2024-05-02T12:00:00Z"`
}

// BillRoutes creates the route group for bill endpoints. mutating wraps
// every state-changing route, typically with the idempotency middleware.
func BillRoutes(h *BillHandler, mutating ...gin.HandlerFunc) *router.DomainGroup {
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, mutating...), handler)
	}

	group := router.NewDomainGroup("bills", "/bills")
	group.POST("", with(h.CreateBill)...)
	group.GET("/:id", h.GetBill)
	group.PATCH("/:id", with(h.UpdateBill)...)
	group.DELETE("/:id", with(h.DeleteBill)...)
	group.POST("/:id/items", with(h.AddBillItems)...)
	group.POST("/:id/settle", with(h.SettleItems)...)
	group.POST("/:id/refund", with(h.RefundItems)...)
	group.POST("/:id/items/:item_id/refund", with(h.RefundItem)...)
	group.POST("/:id/export", with(h.ExportBill)...)
	return group
}

// CreateBill godoc
// @ID           createBill
// @Summary      Create a bill
// @Description  Opens a bill for an owner with an optional initial set of items. The bill starts UNPAID.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body appbill.CreateBillRequest true "Bill"
// @Success      201 {object} APIResponse[appbill.BillResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	var req appbill.CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.CreateBill(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetBill godoc
// @ID           getBill
// @Summary      Get a bill
// @Description  Returns the bill with all of its items
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[appbill.BillResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.svc.GetBill(c.Request.Context(), billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateBill godoc
// @ID           updateBill
// @Summary      Update a bill
// @Description  Changes the bill remark. Status and totals are always derived from the items.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appbill.UpdateBillRequest true "Writable fields"
// @Success      200 {object} APIResponse[appbill.BillResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /bills/{id} [patch]
func (h *BillHandler) UpdateBill(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appbill.UpdateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.UpdateBill(c.Request.Context(), billID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeleteBill godoc
// @ID           deleteBill
// @Summary      Delete a bill
// @Description  Deletes the bill and its items
// @Tags         bills
// @Param        id path string true "Bill ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteBill(c.Request.Context(), billID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddBillItems godoc
// @ID           addBillItems
// @Summary      Add items to a bill
// @Description  Appends items; the bill status is re-derived, so a paid bill turns UNPAID when a priced item is added.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appbill.AddBillItemsRequest true "Items"
// @Success      200 {object} APIResponse[appbill.BillResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /bills/{id}/items [post]
func (h *BillHandler) AddBillItems(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appbill.AddBillItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.AddBillItems(c.Request.Context(), billID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SettleItems godoc
// @ID           settleBillItems
// @Summary      Settle items
// @Description  Settles a batch of items of the bill atomically and reconciles the bill totals.
// @Tags         bills
// @Accept       json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appbill.SettleItemsRequest true "Items to settle"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /bills/{id}/settle [post]
func (h *BillHandler) SettleItems(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appbill.SettleItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.svc.SettleItems(c.Request.Context(), billID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RefundItems godoc
// @ID           refundBillItems
// @Summary      Refund items
// @Description  Fully refunds the paid items among the given ids; other items are skipped.
// @Tags         bills
// @Accept       json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appbill.RefundItemsRequest true "Items to refund"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /bills/{id}/refund [post]
func (h *BillHandler) RefundItems(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appbill.RefundItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.svc.RefundItems(c.Request.Context(), billID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RefundItem godoc
// @ID           refundBillItem
// @Summary      Refund one item
// @Description  Refunds an item in full or, with a quantity, in part. A partial refund shrinks the line in place.
// @Tags         bills
// @Accept       json
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Bill ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body appbill.RefundItemRequest false "Quantity and remark"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /bills/{id}/items/{item_id}/refund [post]
func (h *BillHandler) RefundItem(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}
	var req appbill.RefundItemRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	if err := h.svc.RefundItem(c.Request.Context(), billID, itemID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ExportBill godoc
// @ID           exportBill
// @Summary      Export a bill statement
// @Description  Renders the bill as a PDF statement, stores it and returns a time-limited download URL.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body ExportBillRequest false "Export options"
// @Success      200 {object} APIResponse[appbill.ExportResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /bills/{id}/export [post]
func (h *BillHandler) ExportBill(c *gin.Context) {
	billID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ExportBillRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	exportTime := h.now()
	if req.ExportTime != nil {
		exportTime = *req.ExportTime
	}

	resp, err := h.svc.ExportBill(c.Request.Context(), billID, exportTime)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

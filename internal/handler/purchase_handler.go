package handler

import (
	"bytes"
	"net/http"

	"inventory-admin/internal/middleware"
	"inventory-admin/internal/model"
	"inventory-admin/internal/service"
	"inventory-admin/internal/transfer"
	"inventory-admin/pkg/pagination"
	"inventory-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
	auth            *middleware.Auth
}

func NewPurchaseHandler(purchaseService service.PurchaseService, auth *middleware.Auth) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService, auth: auth}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := h.auth.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	approvers := h.auth.RequireRole(model.RoleAdmin, model.RoleManager)

	purchases := router.Group("/api/purchases")
	{
		purchases.GET("", anyRole, h.ListPurchases)
		purchases.POST("", anyRole, h.CreatePurchase)
		purchases.GET("/report", anyRole, h.ExportPurchaseReport)
		purchases.GET("/:id", anyRole, h.GetPurchase)
		purchases.PUT("/:id/approve", approvers, h.ApprovePurchase)
		purchases.DELETE("/:id", approvers, h.DeletePurchase)
	}
}

// ListPurchases returns purchases newest first, optionally filtered by status
// @Summary      List purchases
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "PENDING or APPROVED"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Failure      422     {object}  response.Response
// @Router       /api/purchases [get]
func (h *PurchaseHandler) ListPurchases(c *gin.Context) {
	params := pagination.Parse(c)

	purchases, total, err := h.purchaseService.List(c.Request.Context(), service.PurchaseFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.NewPage(purchases, total)))
}

// CreatePurchase records a new purchase and its line items as one unit
// @Summary      Create purchase
// @Description  Creates a purchase (PENDING unless status is given) with its line items. Stock is untouched until approval.
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePurchaseRequest  true  "Create Purchase Payload"
// @Success      201      {object}  response.Response{data=service.PurchaseResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/purchases [post]
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req service.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	purchase, err := h.purchaseService.Create(c.Request.Context(), c.GetString(middleware.CtxUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, purchase))
}

// GetPurchase returns one purchase with supplier, users and line items
// @Summary      Get purchase
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchases/{id} [get]
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	purchase, err := h.purchaseService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// ApprovePurchase commits a pending purchase into product stock
// @Summary      Approve purchase
// @Description  Increments stock for every line item and marks the purchase APPROVED in one transaction. Non-pending purchases are rejected with 409.
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id}/approve [put]
func (h *PurchaseHandler) ApprovePurchase(c *gin.Context) {
	purchase, err := h.purchaseService.Approve(c.Request.Context(), c.GetString(middleware.CtxUserID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// DeletePurchase removes a purchase and its line items
// @Summary      Delete purchase
// @Description  Deletes the purchase and its line items. Stock added by an earlier approval is not reversed.
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchases/{id} [delete]
func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	if err := h.purchaseService.Delete(c.Request.Context(), c.GetString(middleware.CtxUserID), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Purchase has been deleted!"))
}

// ExportPurchaseReport downloads approved line items between two dates
// @Summary      Export purchase report
// @Description  Returns an Office Open XML workbook (.xlsx, purchase-report.xlsx). The legacy binary .xls format is not produced; clients that expected an .xls download must accept .xlsx.
// @Tags         purchases
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        start_date  query     string  true  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  true  "End date (YYYY-MM-DD), inclusive"
// @Success      200         {file}    file
// @Failure      422         {object}  response.Response
// @Router       /api/purchases/report [get]
func (h *PurchaseHandler) ExportPurchaseReport(c *gin.Context) {
	rows, err := h.purchaseService.Report(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	sheet, err := transfer.NewSheetWriter(transfer.FormatXLSX, &buf, len(transfer.PurchaseReportHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := transfer.WritePurchaseReport(sheet, rows); err != nil {
		_ = sheet.Discard()
		respondError(c, err)
		return
	}
	if err := sheet.Close(); err != nil {
		respondError(c, err)
		return
	}

	attachment(c, transfer.FormatXLSX.FileName("purchase-report"))
	c.Data(http.StatusOK, transfer.FormatXLSX.ContentType(), buf.Bytes())
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "max-age=0")
}

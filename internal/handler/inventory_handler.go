package handler

import (
	"log"
	"net/http"

	"inventory-admin/internal/middleware"
	"inventory-admin/internal/model"
	"inventory-admin/internal/service"
	"inventory-admin/internal/transfer"
	"inventory-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	auth             *middleware.Auth
}

func NewInventoryHandler(inventoryService service.InventoryService, auth *middleware.Auth) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, auth: auth}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	{
		inventory.GET("/export", h.auth.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.ExportInventory)
		inventory.POST("/import", h.auth.RequireRole(model.RoleAdmin, model.RoleManager), h.ImportInventory)
	}
}

// ExportInventory streams every product as a spreadsheet download
// @Summary      Export inventory
// @Description  Downloads all products with header ID, Name, Code, Quantity, Buying Price, Selling Price, Category ID, Unit ID
// @Tags         inventory
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        format  query     string  false  "xlsx (default) or csv"
// @Success      200     {file}    file
// @Failure      422     {object}  response.Response
// @Router       /api/inventory/export [get]
func (h *InventoryHandler) ExportInventory(c *gin.Context) {
	format, err := transfer.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, service.NewValidationError("format", "must be xlsx or csv"))
		return
	}

	attachment(c, format.FileName("inventory"))
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)

	if err := h.inventoryService.Export(c.Request.Context(), format, c.Writer); err != nil {
		if c.Writer.Written() {
			// Part of the body is out. Dropping the connection is the only way
			// left to tell the client the file is incomplete.
			log.Printf("%s %s: export aborted mid-stream: %v", c.Request.Method, c.FullPath(), err)
			panic(http.ErrAbortHandler)
		}
		c.Writer.Header().Del("Content-Disposition")
		c.Writer.Header().Del("Content-Type")
		respondError(c, err)
	}
}

// ImportInventory inserts one product per row of an uploaded spreadsheet
// @Summary      Import inventory
// @Description  Accepts .xlsx or .csv with a header row (name, code, quantity, buying_price, selling_price, category_id, unit_id). Every row is inserted as a new product; any malformed row rejects the whole file.
// @Tags         inventory
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Inventory file"
// @Success      201   {object}  response.Response{data=service.ImportResult}
// @Failure      422   {object}  response.Response
// @Router       /api/inventory/import [post]
func (h *InventoryHandler) ImportInventory(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, service.NewValidationError("file", "required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, service.NewValidationError("file", "could not be opened"))
		return
	}
	defer file.Close()

	result, err := h.inventoryService.Import(c.Request.Context(), c.GetString(middleware.CtxUserID), fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

package handler

import (
	"errors"
	"log"
	"net/http"

	"inventory-admin/internal/service"
	"inventory-admin/pkg/response"
	"inventory-admin/pkg/validator"

	"github.com/gin-gonic/gin"
)

// respondError maps service error kinds onto HTTP status codes
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, response.ValidationError(http.StatusUnprocessableEntity, "Validation failed", verr.Fields))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

// respondBindError reports payload problems: field rule failures are 422, unreadable bodies 400
func respondBindError(c *gin.Context, err error) {
	if fields, ok := validator.FieldErrors(err); ok {
		c.JSON(http.StatusUnprocessableEntity, response.ValidationError(http.StatusUnprocessableEntity, "Validation failed", fields))
		return
	}
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery turns handler panics into a 500, except http.ErrAbortHandler which
// is re-raised so net/http drops the connection of a response already in flight.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		if err == http.ErrAbortHandler {
			panic(http.ErrAbortHandler)
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

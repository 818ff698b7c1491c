// README: Fallback responses for unknown routes and methods.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{Error: "route not found"})
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewHealthRouter builds the public, unauthenticated, unthrottled health
// surface used by container orchestrators.
func NewHealthRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}

	r.GET("/health", ok)
	r.GET("/health/ready", ok)
	r.GET("/health/startup", ok)

	return r
}

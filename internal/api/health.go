package api

import (
	"net/http"

	"refbot/internal/metrics"

	"github.com/gin-gonic/gin"
)

func NewHealthRoutes(router gin.IRoutes) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

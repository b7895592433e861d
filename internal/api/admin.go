package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"refbot/internal/export"
	"refbot/internal/middleware"
	"refbot/internal/service"
	"refbot/pkg/auth"
	"refbot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type adminRoutes struct {
	ledger   service.LedgerServiceI
	exporter *export.Exporter
	events   *service.EventHub
}

func NewAdminRoutes(handler *gin.RouterGroup, ledger service.LedgerServiceI, exporter *export.Exporter,
	events *service.EventHub, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &adminRoutes{ledger: ledger, exporter: exporter, events: events}

	h := handler.Group("/admin")
	h.Use(a.TelegramAuthMiddleware(), authz.AdminOnly())
	{
		h.GET("/export/:entity", r.Export)
		h.PATCH("/users/:telegram_id/earnings", r.AdjustEarnings)
		h.GET("/events", r.handleWebSocket)
	}
}

func (r *adminRoutes) Export(c *gin.Context) {
	log := logger.Logger()

	entity, err := export.ParseEntity(c.Param("entity"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", entity))

	if err := r.exporter.Write(c.Request.Context(), c.Writer, entity); err != nil {
		log.Error("failed to export", zap.String("entity", string(entity)), zap.Error(err))
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export"})
		}
		return
	}
}

type AdjustEarningsRequest struct {
	Delta *float64 `json:"delta" binding:"required"`
}

func (r *adminRoutes) AdjustEarnings(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		log.Error("failed to parse telegram_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	var req AdjustEarningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.ledger.AdjustEarnings(c.Request.Context(), id, *req.Delta)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to adjust earnings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to adjust earnings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telegram_id":       user.TelegramID,
		"earnings":          user.Earnings,
		"downline_earnings": user.DownlineEarnings,
		"total_earnings":    user.TotalEarnings,
	})
}

package api

import (
	"errors"
	"net/http"

	"refbot/internal/model"
	"refbot/internal/service"
	"refbot/pkg/auth"
	"refbot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	ledger   service.LedgerServiceI
	notifier service.RegistrationNotifier
	botName  string
}

func NewUserRoutes(handler *gin.RouterGroup, ledger service.LedgerServiceI, notifier service.RegistrationNotifier,
	botName string, a *auth.TelegramAuth) {
	r := &userRoutes{ledger: ledger, notifier: notifier, botName: botName}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/", r.RegisterUser)
		h.GET("/me/affiliate", r.GetAffiliate)
	}
}

type RegisterUserRequest struct {
	ReferralCode string `json:"referral_code"`
}

type AffiliateResponse struct {
	Referrals        int     `json:"referrals"`
	Earnings         float64 `json:"earnings"`
	DownlineEarnings float64 `json:"downline_earnings"`
	ReferralCode     string  `json:"referral_code"`
	ReferralLink     string  `json:"referral_link"`
}

// RegisterUser is first contact from the mini-app. Like /start it credits the
// referrer and notifies them in the bot chat.
func (r *userRoutes) RegisterUser(c *gin.Context) {
	log := logger.Logger()

	var req RegisterUserRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Error("failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	reg, err := r.ledger.RegisterUser(c.Request.Context(), &model.User{
		TelegramID: user.ID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
	}, req.ReferralCode)
	if err != nil {
		log.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	if r.notifier != nil {
		r.notifier.NotifyRegistration(c.Request.Context(), reg)
	}

	status := http.StatusOK
	if reg.Created {
		status = http.StatusCreated
	}

	c.JSON(status, gin.H{
		"telegram_id":   reg.User.TelegramID,
		"referral_code": reg.User.ReferralCode,
		"created":       reg.Created,
	})
}

func (r *userRoutes) GetAffiliate(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	stats, err := r.ledger.ReferralStats(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to get referral stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referral stats"})
		return
	}

	c.JSON(http.StatusOK, AffiliateResponse{
		Referrals:        stats.Count,
		Earnings:         stats.Earnings,
		DownlineEarnings: stats.DownlineEarnings,
		ReferralCode:     stats.Code,
		ReferralLink:     model.ReferralLink(r.botName, stats.Code),
	})
}

package api

import (
	accountDelivery "github.com/mdonangelo-tech/chiefos-backend/internal/account/delivery"
	accountUsecasePkg "github.com/mdonangelo-tech/chiefos-backend/internal/account/usecase"
	authUsecasePkg "github.com/mdonangelo-tech/chiefos-backend/internal/auth/usecase"
	briefDelivery "github.com/mdonangelo-tech/chiefos-backend/internal/brief/delivery"
	briefUsecasePkg "github.com/mdonangelo-tech/chiefos-backend/internal/brief/usecase"
	mailDelivery "github.com/mdonangelo-tech/chiefos-backend/internal/mail/delivery"
	mailUsecasePkg "github.com/mdonangelo-tech/chiefos-backend/internal/mail/usecase"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase    authUsecasePkg.AuthUsecase
	config         *config.Config
	accountHandler *accountDelivery.AccountHandler
	mailHandler    *mailDelivery.MailHandler
	briefHandler   *briefDelivery.BriefHandler
}

func NewHandler(
	authUc authUsecasePkg.AuthUsecase,
	accountUc accountUsecasePkg.AccountUsecase,
	syncUc mailUsecasePkg.SyncUsecase,
	messageUc mailUsecasePkg.MessageUsecase,
	briefUc briefUsecasePkg.BriefUsecase,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase:    authUc,
		config:         cfg,
		accountHandler: accountDelivery.NewAccountHandler(accountUc),
		mailHandler:    mailDelivery.NewMailHandler(syncUc, messageUc),
		briefHandler:   briefDelivery.NewBriefHandler(briefUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.accountHandler, h.mailHandler, h.briefHandler)

	return r.Run(addr)
}

package api

import (
	"net/http"

	accountDelivery "github.com/mdonangelo-tech/chiefos-backend/internal/account/delivery"
	"github.com/mdonangelo-tech/chiefos-backend/internal/auth/delivery"
	authUsecasePkg "github.com/mdonangelo-tech/chiefos-backend/internal/auth/usecase"
	briefDelivery "github.com/mdonangelo-tech/chiefos-backend/internal/brief/delivery"
	mailDelivery "github.com/mdonangelo-tech/chiefos-backend/internal/mail/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUsecase authUsecasePkg.AuthUsecase,
	accountHandler *accountDelivery.AccountHandler,
	mailHandler *mailDelivery.MailHandler,
	briefHandler *briefDelivery.BriefHandler,
) {
	authHandler := delivery.NewAuthHandler(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// Account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(delivery.AuthMiddleware(authUsecase))
		{
			accounts.POST("", accountHandler.ConnectAccount)
			accounts.GET("", accountHandler.ListAccounts)
			accounts.DELETE("/:id", accountHandler.DisconnectAccount)
		}

		// Sync and message routes (protected)
		mail := api.Group("")
		mail.Use(delivery.AuthMiddleware(authUsecase))
		{
			mail.POST("/sync", mailHandler.SyncAccounts)
			mail.GET("/messages", mailHandler.ListMessages)
			mail.PATCH("/messages/:id/read", mailHandler.MarkRead)
		}

		// Brief route (protected)
		api.GET("/brief", delivery.AuthMiddleware(authUsecase), briefHandler.GetBrief)
	}
}

package main

import (
	"log"

	api "github.com/mdonangelo-tech/chiefos-backend/cmd/api"
	accountdomain "github.com/mdonangelo-tech/chiefos-backend/internal/account/domain"
	accountRepo "github.com/mdonangelo-tech/chiefos-backend/internal/account/repository"
	accountUsecase "github.com/mdonangelo-tech/chiefos-backend/internal/account/usecase"
	authdomain "github.com/mdonangelo-tech/chiefos-backend/internal/auth/domain"
	authRepo "github.com/mdonangelo-tech/chiefos-backend/internal/auth/repository"
	authUsecase "github.com/mdonangelo-tech/chiefos-backend/internal/auth/usecase"
	briefUsecase "github.com/mdonangelo-tech/chiefos-backend/internal/brief/usecase"
	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
	mailRepo "github.com/mdonangelo-tech/chiefos-backend/internal/mail/repository"
	mailUsecase "github.com/mdonangelo-tech/chiefos-backend/internal/mail/usecase"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/database"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/gmail"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/imapclient"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&accountdomain.Account{},
		&maildomain.Message{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	accountRepository := accountRepo.NewAccountRepository(db)
	messageRepository := mailRepo.NewMessageRepository(db)

	// Mail providers, keyed by the account's provider name
	providers := map[string]maildomain.MailProvider{
		accountdomain.ProviderGmail: gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.SyncWindowDays),
		accountdomain.ProviderIMAP:  imapclient.NewService(cfg.SyncWindowDays),
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	accountUsecaseInstance := accountUsecase.NewAccountUsecase(accountRepository, messageRepository, cfg)
	syncUsecaseInstance := mailUsecase.NewSyncUsecase(accountRepository, messageRepository, providers, cfg)
	messageUsecaseInstance := mailUsecase.NewMessageUsecase(messageRepository, cfg)
	briefUsecaseInstance := briefUsecase.NewBriefUsecase(messageRepository, accountRepository, cfg)

	// Initialize HTTP handler
	handler := api.NewHandler(
		authUsecaseInstance,
		accountUsecaseInstance,
		syncUsecaseInstance,
		messageUsecaseInstance,
		briefUsecaseInstance,
		cfg,
	)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

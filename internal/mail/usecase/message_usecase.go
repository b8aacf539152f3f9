package usecase

import (
	"fmt"
	"time"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
	"github.com/mdonangelo-tech/chiefos-backend/internal/mail/repository"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"
)

// messageUsecase implements MessageUsecase interface
type messageUsecase struct {
	messageRepo repository.MessageRepository
	config      *config.Config
}

// NewMessageUsecase creates a new instance of messageUsecase
func NewMessageUsecase(messageRepo repository.MessageRepository, cfg *config.Config) MessageUsecase {
	return &messageUsecase{
		messageRepo: messageRepo,
		config:      cfg,
	}
}

func (u *messageUsecase) ListRecent(userID string, limit int) ([]*maildomain.Message, error) {
	since := time.Now().AddDate(0, 0, -u.config.SyncWindowDays)
	return u.messageRepo.ListRecentByUser(userID, since, limit)
}

func (u *messageUsecase) MarkRead(userID, messageID string) error {
	msg, err := u.messageRepo.GetByID(userID, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message not found")
	}
	return u.messageRepo.SetReadLocally(userID, messageID, true)
}

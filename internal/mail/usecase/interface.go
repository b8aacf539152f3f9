package usecase

import (
	"context"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
)

// SyncUsecase defines the interface for the mail sync engine.
type SyncUsecase interface {
	// SyncUser runs one incremental sync across all of the user's connected
	// accounts. Per-account failures are captured in the report; only a
	// failure to resolve the accounts themselves returns an error.
	SyncUser(ctx context.Context, userID string) (*maildomain.SyncReport, error)
}

// MessageUsecase exposes the local canonical copy to the boundary layer.
type MessageUsecase interface {
	ListRecent(userID string, limit int) ([]*maildomain.Message, error)
	MarkRead(userID, messageID string) error
}

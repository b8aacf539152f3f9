package repository

import (
	"time"

	accountdomain "github.com/mdonangelo-tech/chiefos-backend/internal/account/domain"
)

// AccountRepository defines the interface for account persistence.
type AccountRepository interface {
	Create(account *accountdomain.Account) error
	FindByID(id string) (*accountdomain.Account, error)
	FindByUserID(userID string) ([]*accountdomain.Account, error)
	FindByUserAndAddress(userID, address string) (*accountdomain.Account, error)
	Update(account *accountdomain.Account) error
	// UpdateSyncCursor advances the stored cursor after a fully committed
	// page. Only the sync engine calls this.
	UpdateSyncCursor(accountID, cursor string) error
	// UpdateSyncStatus records the outcome of a sync run.
	UpdateSyncStatus(accountID, status string, syncedAt time.Time) error
	Delete(id string) error
}

package domain

import (
	"time"

	"github.com/mdonangelo-tech/chiefos-backend/pkg/normalize"
)

// Supported provider identifiers.
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

// Account is one connected mailbox belonging to a user. A user connects at
// most one account per mailbox address.
type Account struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"uniqueIndex:idx_user_address;index;not null"`
	Address  string `json:"address" gorm:"uniqueIndex:idx_user_address;not null"`
	Provider string `json:"provider" gorm:"not null"`

	// Type is derived from the address domain once at connection time.
	Type normalize.AccountType `json:"type"`

	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`

	ImapServer string `json:"-"`
	ImapPort   int    `json:"-"`
	// ImapPassword is stored AES-GCM encrypted.
	ImapPassword string `json:"-"`

	// SyncCursor is the provider-opaque incremental sync position. Mutated
	// only by the sync engine after a fully committed page.
	SyncCursor     string     `json:"-"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

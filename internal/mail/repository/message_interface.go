package repository

import (
	"time"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
)

// MessageRepository defines the interface for the message store. Upsert must
// be atomic per (account_id, provider_message_id) row so a brief built
// concurrently with a sync never observes a torn message.
type MessageRepository interface {
	// Upsert inserts or updates one message, keyed by
	// (account_id, provider_message_id). Re-ingesting unchanged provider
	// content is a no-op and never regresses locally-mutated fields.
	Upsert(msg *maildomain.Message) (maildomain.UpsertOutcome, error)
	GetByID(userID, id string) (*maildomain.Message, error)
	// ListRecentByUser returns messages received at or after since, ordered
	// received_at desc then id asc (a total order).
	ListRecentByUser(userID string, since time.Time, limit int) ([]*maildomain.Message, error)
	SetReadLocally(userID, id string, read bool) error
	// DeleteByAccount removes an account's messages on disconnect so a
	// deleted account can never resurrect stale mail.
	DeleteByAccount(accountID string) error
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Message is the canonical local copy of one provider email. Identity is the
// (account_id, provider_message_id) pair; rows are written only by the sync
// engine.
type Message struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	AccountID         string    `json:"account_id" gorm:"uniqueIndex:idx_account_provider_msg;index;not null"`
	UserID            string    `json:"user_id" gorm:"index;not null"`
	ProviderMessageID string    `json:"provider_message_id" gorm:"uniqueIndex:idx_account_provider_msg;not null"`
	ThreadID          string    `json:"thread_id" gorm:"index"`
	Sender            string    `json:"sender"`
	Subject           string    `json:"subject"`
	Snippet           string    `json:"snippet" gorm:"type:text"`
	Labels            string    `json:"labels"`
	Unread            bool      `json:"unread"`
	ReceivedAt        time.Time `json:"received_at" gorm:"index"`

	// ReadLocally is user state owned by this application; provider resyncs
	// must never clear it.
	ReadLocally bool `json:"read_locally"`

	// Fingerprint is a hash of the provider-owned fields, used to detect
	// unchanged content on re-ingestion.
	Fingerprint string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContentFingerprint hashes every provider-owned field. Two messages with the
// same fingerprint carry identical provider content.
func (m *Message) ContentFingerprint() string {
	h := sha256.New()
	parts := []string{
		m.ThreadID,
		m.Sender,
		m.Subject,
		m.Snippet,
		m.Labels,
		strconv.FormatBool(m.Unread),
		m.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
	h.Write([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// UpsertOutcome reports what a message store upsert did.
type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
	UpsertSkipped UpsertOutcome = "skipped"
)

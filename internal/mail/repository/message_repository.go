package repository

import (
	"errors"
	"time"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Upsert(msg *maildomain.Message) (maildomain.UpsertOutcome, error) {
	var outcome maildomain.UpsertOutcome

	fingerprint := msg.ContentFingerprint()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing maildomain.Message
		err := tx.Where("account_id = ? AND provider_message_id = ?", msg.AccountID, msg.ProviderMessageID).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := time.Now()
			msg.ID = uuid.New().String()
			msg.Fingerprint = fingerprint
			msg.CreatedAt = now
			msg.UpdatedAt = now
			if err := tx.Create(msg).Error; err != nil {
				return err
			}
			outcome = maildomain.UpsertCreated
			return nil
		} else if err != nil {
			return err
		}

		if existing.Fingerprint == fingerprint {
			outcome = maildomain.UpsertSkipped
			return nil
		}

		// Provider content changed: update provider-owned columns only.
		// Locally-mutated fields (read_locally) stay untouched.
		outcome = maildomain.UpsertUpdated
		return tx.Model(&maildomain.Message{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"thread_id":   msg.ThreadID,
				"sender":      msg.Sender,
				"subject":     msg.Subject,
				"snippet":     msg.Snippet,
				"labels":      msg.Labels,
				"unread":      msg.Unread,
				"received_at": msg.ReceivedAt,
				"fingerprint": fingerprint,
				"updated_at":  time.Now(),
			}).Error
	})

	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (r *messageRepository) GetByID(userID, id string) (*maildomain.Message, error) {
	var msg maildomain.Message
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListRecentByUser(userID string, since time.Time, limit int) ([]*maildomain.Message, error) {
	var messages []*maildomain.Message
	q := r.db.Where("user_id = ? AND received_at >= ?", userID, since).
		Order("received_at desc").
		Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) SetReadLocally(userID, id string, read bool) error {
	return r.db.Model(&maildomain.Message{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{
			"read_locally": read,
			"updated_at":   time.Now(),
		}).Error
}

func (r *messageRepository) DeleteByAccount(accountID string) error {
	return r.db.Where("account_id = ?", accountID).Delete(&maildomain.Message{}).Error
}

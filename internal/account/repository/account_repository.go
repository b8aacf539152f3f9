package repository

import (
	"errors"
	"time"

	accountdomain "github.com/mdonangelo-tech/chiefos-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *accountdomain.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	return r.db.Create(account).Error
}

func (r *accountRepository) FindByID(id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByUserID(userID string) ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.Where("user_id = ?", userID).Order("created_at asc").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) FindByUserAndAddress(userID, address string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("user_id = ? AND address = ?", userID, address).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Update(account *accountdomain.Account) error {
	account.UpdatedAt = time.Now()
	return r.db.Save(account).Error
}

func (r *accountRepository) UpdateSyncCursor(accountID, cursor string) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"sync_cursor": cursor,
			"updated_at":  time.Now(),
		}).Error
}

func (r *accountRepository) UpdateSyncStatus(accountID, status string, syncedAt time.Time) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"last_sync_status": status,
			"last_synced_at":   syncedAt,
			"updated_at":       time.Now(),
		}).Error
}

func (r *accountRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&accountdomain.Account{}).Error
}

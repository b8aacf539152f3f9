package usecase

import (
	"errors"
	"fmt"
	"strings"

	accountdomain "github.com/mdonangelo-tech/chiefos-backend/internal/account/domain"
	accountdto "github.com/mdonangelo-tech/chiefos-backend/internal/account/dto"
	"github.com/mdonangelo-tech/chiefos-backend/internal/account/repository"
	mailrepo "github.com/mdonangelo-tech/chiefos-backend/internal/mail/repository"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/crypto"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/normalize"
)

// ErrAccountNotFound is returned when the caller does not own the account.
var ErrAccountNotFound = errors.New("account not found")

// AccountUsecase defines the interface for connected-mailbox management.
type AccountUsecase interface {
	ConnectAccount(userID string, req *accountdto.ConnectAccountRequest) (*accountdomain.Account, error)
	ListAccounts(userID string) ([]*accountdomain.Account, error)
	// DisconnectAccount removes the account and every message it ingested,
	// so a disconnected mailbox can never resurrect stale mail.
	DisconnectAccount(userID, accountID string) error
}

// accountUsecase implements AccountUsecase interface
type accountUsecase struct {
	accountRepo repository.AccountRepository
	messageRepo mailrepo.MessageRepository
	config      *config.Config
}

// NewAccountUsecase creates a new instance of accountUsecase
func NewAccountUsecase(accountRepo repository.AccountRepository, messageRepo mailrepo.MessageRepository, cfg *config.Config) AccountUsecase {
	return &accountUsecase{
		accountRepo: accountRepo,
		messageRepo: messageRepo,
		config:      cfg,
	}
}

func (u *accountUsecase) ConnectAccount(userID string, req *accountdto.ConnectAccountRequest) (*accountdomain.Account, error) {
	address := strings.ToLower(strings.TrimSpace(req.Address))

	existing, err := u.accountRepo.FindByUserAndAddress(userID, address)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("mailbox %s is already connected", address)
	}

	account := &accountdomain.Account{
		UserID:       userID,
		Address:      address,
		Provider:     req.Provider,
		Type:         normalize.ClassifyAccountType(address),
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}

	if req.Provider == accountdomain.ProviderIMAP {
		if req.ImapServer == "" || req.ImapPassword == "" {
			return nil, errors.New("imap accounts require server and password")
		}
		encrypted, err := crypto.Encrypt(req.ImapPassword, u.config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt password: %w", err)
		}
		account.ImapServer = req.ImapServer
		account.ImapPort = req.ImapPort
		if account.ImapPort == 0 {
			account.ImapPort = 993
		}
		account.ImapPassword = encrypted
	}

	if err := u.accountRepo.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *accountUsecase) ListAccounts(userID string) ([]*accountdomain.Account, error) {
	return u.accountRepo.FindByUserID(userID)
}

func (u *accountUsecase) DisconnectAccount(userID, accountID string) error {
	account, err := u.accountRepo.FindByID(accountID)
	if err != nil {
		return err
	}
	if account == nil || account.UserID != userID {
		return ErrAccountNotFound
	}

	// Messages first: if this is interrupted, the account remains and the
	// next sync simply re-ingests, which is safe. The other order could
	// orphan stale messages with no owning account.
	if err := u.messageRepo.DeleteByAccount(accountID); err != nil {
		return fmt.Errorf("failed to delete account messages: %w", err)
	}
	return u.accountRepo.Delete(accountID)
}

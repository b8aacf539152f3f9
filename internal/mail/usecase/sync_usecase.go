package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	accountdomain "github.com/mdonangelo-tech/chiefos-backend/internal/account/domain"
	accountrepo "github.com/mdonangelo-tech/chiefos-backend/internal/account/repository"
	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
	"github.com/mdonangelo-tech/chiefos-backend/internal/mail/repository"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/crypto"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/normalize"

	"golang.org/x/oauth2"
)

// syncUsecase implements SyncUsecase interface
type syncUsecase struct {
	accountRepo accountrepo.AccountRepository
	messageRepo repository.MessageRepository
	providers   map[string]maildomain.MailProvider
	config      *config.Config
}

// NewSyncUsecase creates a new instance of syncUsecase. The providers map is
// keyed by the account's provider identifier (gmail, imap).
func NewSyncUsecase(accountRepo accountrepo.AccountRepository, messageRepo repository.MessageRepository, providers map[string]maildomain.MailProvider, cfg *config.Config) SyncUsecase {
	return &syncUsecase{
		accountRepo: accountRepo,
		messageRepo: messageRepo,
		providers:   providers,
		config:      cfg,
	}
}

func (u *syncUsecase) SyncUser(ctx context.Context, userID string) (*maildomain.SyncReport, error) {
	accounts, err := u.accountRepo.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}

	report := &maildomain.SyncReport{Accounts: []*maildomain.SyncResult{}}
	if len(accounts) == 0 {
		report.Aggregate()
		return report, nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.config.SyncDeadline)
	defer cancel()

	// Bounded worker pool: one account per worker slot, page loops inside an
	// account stay strictly sequential. Pool size 1 gives deterministic
	// ordering in tests.
	workers := u.config.SyncWorkerLimit
	if workers <= 0 {
		workers = 1
	}
	if workers > len(accounts) {
		workers = len(accounts)
	}

	jobs := make(chan *accountdomain.Account)
	byAccount := make(map[string]*maildomain.SyncResult, len(accounts))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for acct := range jobs {
				res := u.syncAccount(ctx, acct)
				mu.Lock()
				byAccount[acct.ID] = res
				mu.Unlock()
			}
		}()
	}

	for _, acct := range accounts {
		jobs <- acct
	}
	close(jobs)
	wg.Wait()

	// Results in stable account order, not completion order.
	for _, acct := range accounts {
		report.Accounts = append(report.Accounts, byAccount[acct.ID])
	}
	report.Aggregate()
	return report, nil
}

// syncAccount runs one account's page loop: list, normalize, upsert, then
// advance the cursor. A failure leaves the cursor at the last fully committed
// page, so the next run re-fetches that page into the idempotent store.
func (u *syncUsecase) syncAccount(ctx context.Context, acct *accountdomain.Account) *maildomain.SyncResult {
	res := &maildomain.SyncResult{
		AccountID: acct.ID,
		Address:   acct.Address,
		Outcome:   maildomain.SyncOK,
	}

	provider, ok := u.providers[acct.Provider]
	if !ok {
		u.finish(acct, res, fmt.Errorf("no provider registered for %q", acct.Provider), maildomain.ErrKindPermanent, 0)
		return res
	}

	creds, err := u.credentialsFor(acct)
	if err != nil {
		u.finish(acct, res, fmt.Errorf("failed to prepare credentials: %w", err), maildomain.ErrKindPermanent, 0)
		return res
	}

	cursor := acct.SyncCursor
	committedPages := 0

	for page := 0; page < u.config.SyncMaxPages; page++ {
		summaries, nextCursor, hasMore, err := u.listWithRetry(ctx, provider, creds, cursor)
		if err != nil {
			u.finish(acct, res, err, maildomain.KindOf(err), committedPages)
			return res
		}

		res.Counts.Fetched += len(summaries)

		if err := u.persistPage(acct, summaries, &res.Counts); err != nil {
			// Cursor stays at the previous value; the next run re-fetches
			// this page.
			u.finish(acct, res, err, maildomain.ErrKindPersistence, committedPages)
			return res
		}

		cursor = nextCursor
		if err := u.accountRepo.UpdateSyncCursor(acct.ID, cursor); err != nil {
			u.finish(acct, res, fmt.Errorf("failed to advance cursor: %w", err), maildomain.ErrKindPersistence, committedPages)
			return res
		}
		committedPages++

		if !hasMore {
			break
		}
	}

	u.finish(acct, res, nil, "", committedPages)
	return res
}

// persistPage normalizes and upserts one page. All upserts must succeed
// before the caller may advance the cursor.
func (u *syncUsecase) persistPage(acct *accountdomain.Account, summaries []*maildomain.MessageSummary, counts *maildomain.SyncCounts) error {
	for _, s := range summaries {
		msg := &maildomain.Message{
			AccountID:         acct.ID,
			UserID:            acct.UserID,
			ProviderMessageID: s.ProviderMessageID,
			ThreadID:          s.ThreadID,
			Sender:            normalize.DecodeEntities(s.Sender),
			Subject:           normalize.DecodeEntities(s.Subject),
			Snippet:           normalize.DecodeEntities(s.Snippet),
			Labels:            strings.Join(s.Labels, ","),
			Unread:            s.Unread,
			ReceivedAt:        s.ReceivedAt,
		}

		outcome, err := u.messageRepo.Upsert(msg)
		if err != nil {
			return fmt.Errorf("failed to upsert message %s: %w", s.ProviderMessageID, err)
		}

		switch outcome {
		case maildomain.UpsertCreated:
			counts.New++
		case maildomain.UpsertUpdated:
			counts.Updated++
		case maildomain.UpsertSkipped:
			counts.Skipped++
		}
	}
	return nil
}

// listWithRetry calls ListSince with bounded retries for rate-limit and
// transient failures. AuthExpired and permanent errors fail immediately.
// Back-off waits are per account and respect cancellation.
func (u *syncUsecase) listWithRetry(ctx context.Context, provider maildomain.MailProvider, creds maildomain.ProviderCredentials, cursor string) ([]*maildomain.MessageSummary, string, bool, error) {
	for attempt := 0; ; attempt++ {
		summaries, nextCursor, hasMore, err := provider.ListSince(ctx, creds, cursor, u.config.SyncPageSize)
		if err == nil {
			return summaries, nextCursor, hasMore, nil
		}

		var delay time.Duration
		var rl *maildomain.RateLimitedError
		var tr *maildomain.TransientError

		switch {
		case errors.As(err, &rl):
			delay = rl.RetryAfter
			if delay <= 0 {
				delay = u.config.SyncRetryBackoff
			}
		case errors.As(err, &tr):
			delay = u.config.SyncRetryBackoff
		default:
			// AuthExpired, permanent errors and cancellation are not
			// retryable.
			return nil, "", false, err
		}

		if attempt >= u.config.SyncMaxRetries {
			return nil, "", false, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, "", false, ctx.Err()
		case <-timer.C:
		}
	}
}

// finish records the run outcome on the result and persists the account's
// last-sync status.
func (u *syncUsecase) finish(acct *accountdomain.Account, res *maildomain.SyncResult, err error, kind maildomain.ErrorKind, committedPages int) {
	if err != nil {
		res.Error = err.Error()
		res.ErrorKind = kind
		switch {
		case kind == maildomain.ErrKindTimeout:
			// Committed pages stay committed; the run was cut short.
			res.Outcome = maildomain.SyncPartial
		case committedPages > 0:
			res.Outcome = maildomain.SyncPartial
		default:
			res.Outcome = maildomain.SyncFailed
		}
		log.Printf("[Sync] account %s (%s): %s after %d committed pages: %v", acct.ID, acct.Address, res.Outcome, committedPages, err)
	}

	if statusErr := u.accountRepo.UpdateSyncStatus(acct.ID, string(res.Outcome), time.Now()); statusErr != nil {
		log.Printf("[Sync] failed to record sync status for account %s: %v", acct.ID, statusErr)
	}
}

// credentialsFor assembles per-call provider credentials, decrypting stored
// IMAP passwords and wiring the token refresh callback for OAuth accounts.
func (u *syncUsecase) credentialsFor(acct *accountdomain.Account) (maildomain.ProviderCredentials, error) {
	creds := maildomain.ProviderCredentials{
		AccessToken:    acct.AccessToken,
		RefreshToken:   acct.RefreshToken,
		OnTokenRefresh: u.makeTokenUpdateCallback(acct.ID),
		Server:         acct.ImapServer,
		Port:           acct.ImapPort,
		Username:       acct.Address,
	}

	if acct.Provider == accountdomain.ProviderIMAP && acct.ImapPassword != "" {
		password, err := crypto.Decrypt(acct.ImapPassword, u.config.EncryptionKey)
		if err != nil {
			return maildomain.ProviderCredentials{}, fmt.Errorf("failed to decrypt password: %w", err)
		}
		creds.Password = password
	}

	return creds, nil
}

func (u *syncUsecase) makeTokenUpdateCallback(accountID string) maildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		acct, err := u.accountRepo.FindByID(accountID)
		if err != nil {
			return err
		}
		if acct == nil {
			return nil
		}

		acct.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			acct.RefreshToken = token.RefreshToken
		}
		acct.TokenExpiry = token.Expiry

		return u.accountRepo.Update(acct)
	}
}

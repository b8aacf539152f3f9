package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	accountdomain "github.com/mdonangelo-tech/chiefos-backend/internal/account/domain"
	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"

	"github.com/stretchr/testify/require"
)

// fakeAccountRepo is an in-memory AccountRepository.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts []*accountdomain.Account
}

func (r *fakeAccountRepo) Create(a *accountdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append(r.accounts, a)
	return nil
}

func (r *fakeAccountRepo) FindByID(id string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByUserID(userID string) ([]*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*accountdomain.Account
	for _, a := range r.accounts {
		if a.UserID == userID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) FindByUserAndAddress(userID, address string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.UserID == userID && a.Address == address {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) Update(updated *accountdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.accounts {
		if a.ID == updated.ID {
			copied := *updated
			r.accounts[i] = &copied
		}
	}
	return nil
}

func (r *fakeAccountRepo) UpdateSyncCursor(accountID, cursor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == accountID {
			a.SyncCursor = cursor
		}
	}
	return nil
}

func (r *fakeAccountRepo) UpdateSyncStatus(accountID, status string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == accountID {
			a.LastSyncStatus = status
			a.LastSyncedAt = &syncedAt
		}
	}
	return nil
}

func (r *fakeAccountRepo) Delete(id string) error { return nil }

func (r *fakeAccountRepo) cursorOf(accountID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == accountID {
			return a.SyncCursor
		}
	}
	return ""
}

// fakeMessageRepo is an in-memory MessageRepository with the same idempotent
// upsert semantics as the gorm implementation, plus failure injection.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*maildomain.Message
	upserts  int
	// failAt makes the Nth upsert call (1-based) fail once set.
	failAt int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: map[string]*maildomain.Message{}}
}

func (r *fakeMessageRepo) Upsert(msg *maildomain.Message) (maildomain.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upserts++
	if r.failAt > 0 && r.upserts == r.failAt {
		return "", errors.New("disk full")
	}

	key := msg.AccountID + "/" + msg.ProviderMessageID
	fingerprint := msg.ContentFingerprint()

	existing, ok := r.messages[key]
	if !ok {
		copied := *msg
		copied.ID = key
		copied.Fingerprint = fingerprint
		r.messages[key] = &copied
		return maildomain.UpsertCreated, nil
	}
	if existing.Fingerprint == fingerprint {
		return maildomain.UpsertSkipped, nil
	}
	copied := *msg
	copied.ID = existing.ID
	copied.ReadLocally = existing.ReadLocally
	copied.Fingerprint = fingerprint
	r.messages[key] = &copied
	return maildomain.UpsertUpdated, nil
}

func (r *fakeMessageRepo) GetByID(userID, id string) (*maildomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.UserID == userID && m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ListRecentByUser(userID string, since time.Time, limit int) ([]*maildomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*maildomain.Message
	for _, m := range r.messages {
		if m.UserID == userID && !m.ReceivedAt.Before(since) {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) SetReadLocally(userID, id string, read bool) error { return nil }

func (r *fakeMessageRepo) DeleteByAccount(accountID string) error { return nil }

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// fakeProvider serves scripted messages keyed by the credentials' username
// (the account address). The cursor is a numeric index, opaque to the engine.
type fakeProvider struct {
	mu       sync.Mutex
	inboxes  map[string][]*maildomain.MessageSummary
	errs     map[string][]error // errors to return before succeeding, per address
	calls    map[string]int
	blocking bool // block on ctx instead of answering
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		inboxes: map[string][]*maildomain.MessageSummary{},
		errs:    map[string][]error{},
		calls:   map[string]int{},
	}
}

func (p *fakeProvider) ListSince(ctx context.Context, creds maildomain.ProviderCredentials, cursor string, pageSize int) ([]*maildomain.MessageSummary, string, bool, error) {
	if p.blocking {
		<-ctx.Done()
		return nil, "", false, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls[creds.Username]++
	if pending := p.errs[creds.Username]; len(pending) > 0 {
		err := pending[0]
		p.errs[creds.Username] = pending[1:]
		return nil, "", false, err
	}

	inbox := p.inboxes[creds.Username]
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	if start > len(inbox) {
		start = len(inbox)
	}

	end := start + pageSize
	if end > len(inbox) {
		end = len(inbox)
	}

	page := inbox[start:end]
	return page, strconv.Itoa(end), end < len(inbox), nil
}

func (p *fakeProvider) FetchDetail(ctx context.Context, creds maildomain.ProviderCredentials, providerMessageID string) (*maildomain.MessageDetail, error) {
	return nil, maildomain.ErrMessageNotFound
}

func (p *fakeProvider) callCount(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[address]
}

func summaries(prefix string, n int) []*maildomain.MessageSummary {
	base := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	out := make([]*maildomain.MessageSummary, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &maildomain.MessageSummary{
			ProviderMessageID: fmt.Sprintf("%s-%03d", prefix, i),
			ThreadID:          fmt.Sprintf("%s-thread-%d", prefix, i%3),
			Sender:            "sender@acme.io",
			Subject:           fmt.Sprintf("Subject &#%d;", 65+i%26),
			Snippet:           "Hello &amp; welcome",
			Unread:            i%2 == 0,
			ReceivedAt:        base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		SyncWindowDays:   90,
		SyncPageSize:     2,
		SyncMaxPages:     10,
		SyncWorkerLimit:  1,
		SyncMaxRetries:   2,
		SyncRetryBackoff: time.Millisecond,
		SyncDeadline:     time.Minute,
	}
}

func gmailAccount(id, userID, address string) *accountdomain.Account {
	return &accountdomain.Account{
		ID:       id,
		UserID:   userID,
		Address:  address,
		Provider: accountdomain.ProviderGmail,
	}
}

func newEngine(accounts *fakeAccountRepo, messages *fakeMessageRepo, provider *fakeProvider, cfg *config.Config) SyncUsecase {
	providers := map[string]maildomain.MailProvider{
		accountdomain.ProviderGmail: provider,
	}
	return NewSyncUsecase(accounts, messages, providers, cfg)
}

func TestSyncUserIdempotent(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.inboxes["a@acme.io"] = summaries("a", 5)

	engine := newEngine(accounts, messages, provider, testConfig())

	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, maildomain.SyncOK, report.Outcome)
	require.Len(t, report.Accounts, 1)
	require.Equal(t, 5, report.Accounts[0].Counts.Fetched)
	require.Equal(t, 5, report.Accounts[0].Counts.New)
	require.Equal(t, 5, messages.count())

	// Second run with no new provider data: counts all zero, store unchanged.
	report, err = engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, maildomain.SyncOK, report.Outcome)
	require.Equal(t, 0, report.Accounts[0].Counts.New)
	require.Equal(t, 0, report.Accounts[0].Counts.Updated)
	require.Equal(t, 5, messages.count())
}

func TestSyncNormalizesEntities(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.inboxes["a@acme.io"] = []*maildomain.MessageSummary{{
		ProviderMessageID: "m-1",
		Subject:           "It&#39;s &amp; co",
		Snippet:           "&lt;tag&gt;",
		ReceivedAt:        time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC),
	}}

	engine := newEngine(accounts, messages, provider, testConfig())
	_, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	msgs, err := messages.ListRecentByUser("u1", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "It's & co", msgs[0].Subject)
	require.Equal(t, "<tag>", msgs[0].Snippet)
}

func TestCursorSafetyOnPersistenceFailure(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.inboxes["a@acme.io"] = summaries("a", 4) // two pages of two

	// Third upsert (first message of page two) fails.
	messages.failAt = 3

	engine := newEngine(accounts, messages, provider, testConfig())
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	res := report.Accounts[0]
	require.Equal(t, maildomain.SyncPartial, res.Outcome)
	require.Equal(t, maildomain.ErrKindPersistence, res.ErrorKind)
	require.Equal(t, 2, res.Counts.New)

	// Cursor reflects the last fully committed page only.
	require.Equal(t, "2", accounts.cursorOf("acct-a"))

	// Next run re-fetches the failed page; no duplicates appear.
	messages.failAt = 0
	report, err = engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, maildomain.SyncOK, report.Outcome)
	require.Equal(t, 2, report.Accounts[0].Counts.New)
	require.Equal(t, 4, messages.count())
	require.Equal(t, "4", accounts.cursorOf("acct-a"))
}

func TestAccountIsolation(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{
		gmailAccount("acct-a", "u1", "a@acme.io"),
		gmailAccount("acct-b", "u1", "b@acme.io"),
		gmailAccount("acct-c", "u1", "c@acme.io"),
	}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.inboxes["a@acme.io"] = summaries("a", 2)
	provider.inboxes["c@acme.io"] = summaries("c", 2)
	provider.errs["b@acme.io"] = []error{
		&maildomain.PermanentError{Err: errors.New("malformed request")},
	}

	engine := newEngine(accounts, messages, provider, testConfig())
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	require.Equal(t, maildomain.SyncPartial, report.Outcome)
	require.Len(t, report.Accounts, 3)
	require.Equal(t, maildomain.SyncOK, report.Accounts[0].Outcome)
	require.Equal(t, maildomain.SyncFailed, report.Accounts[1].Outcome)
	require.Equal(t, maildomain.ErrKindPermanent, report.Accounts[1].ErrorKind)
	require.Equal(t, maildomain.SyncOK, report.Accounts[2].Outcome)
	require.Equal(t, 4, messages.count())
}

func TestRateLimitedRetriesThenSucceeds(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.inboxes["a@acme.io"] = summaries("a", 2)
	provider.errs["a@acme.io"] = []error{
		&maildomain.RateLimitedError{RetryAfter: time.Millisecond},
	}

	engine := newEngine(accounts, messages, provider, testConfig())
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, maildomain.SyncOK, report.Outcome)
	require.Equal(t, 2, report.Accounts[0].Counts.New)
	require.Equal(t, 2, provider.callCount("a@acme.io"))
}

func TestRateLimitedExhaustsRetries(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.errs["a@acme.io"] = []error{
		&maildomain.RateLimitedError{RetryAfter: time.Millisecond},
		&maildomain.RateLimitedError{RetryAfter: time.Millisecond},
		&maildomain.RateLimitedError{RetryAfter: time.Millisecond},
		&maildomain.RateLimitedError{RetryAfter: time.Millisecond},
	}

	engine := newEngine(accounts, messages, provider, testConfig())
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	res := report.Accounts[0]
	require.Equal(t, maildomain.SyncFailed, res.Outcome)
	require.Equal(t, maildomain.ErrKindRateLimited, res.ErrorKind)
	// Initial attempt plus SyncMaxRetries retries.
	require.Equal(t, 3, provider.callCount("a@acme.io"))
}

func TestAuthExpiredFailsWithoutRetry(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.errs["a@acme.io"] = []error{maildomain.ErrAuthExpired}

	engine := newEngine(accounts, messages, provider, testConfig())
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	res := report.Accounts[0]
	require.Equal(t, maildomain.SyncFailed, res.Outcome)
	require.Equal(t, maildomain.ErrKindAuthExpired, res.ErrorKind)
	require.Equal(t, 1, provider.callCount("a@acme.io"))
}

func TestPageSafetyLimit(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.inboxes["a@acme.io"] = summaries("a", 100)

	cfg := testConfig()
	cfg.SyncMaxPages = 3

	engine := newEngine(accounts, messages, provider, cfg)
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	// Three pages of two, then the loop stops even though more remain.
	require.Equal(t, 6, report.Accounts[0].Counts.Fetched)
	require.Equal(t, "6", accounts.cursorOf("acct-a"))
}

func TestDeadlineMarksAccountPartial(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{gmailAccount("acct-a", "u1", "a@acme.io")}}
	messages := newFakeMessageRepo()
	provider := newFakeProvider()
	provider.blocking = true

	cfg := testConfig()
	cfg.SyncDeadline = 10 * time.Millisecond

	engine := newEngine(accounts, messages, provider, cfg)
	report, err := engine.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	res := report.Accounts[0]
	require.Equal(t, maildomain.SyncPartial, res.Outcome)
	require.Equal(t, maildomain.ErrKindTimeout, res.ErrorKind)
}

func TestSyncUserNoAccounts(t *testing.T) {
	engine := newEngine(&fakeAccountRepo{}, newFakeMessageRepo(), newFakeProvider(), testConfig())

	report, err := engine.SyncUser(context.Background(), "nobody")
	require.NoError(t, err)
	require.Equal(t, maildomain.SyncOK, report.Outcome)
	require.Empty(t, report.Accounts)
}

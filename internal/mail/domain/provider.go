package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc persists refreshed OAuth tokens back to the account record.
type TokenUpdateFunc func(token *oauth2.Token) error

// ProviderCredentials carries everything a provider implementation needs to
// act on one mailbox. OAuth providers use the token fields, IMAP providers the
// server fields.
type ProviderCredentials struct {
	AccessToken    string
	RefreshToken   string
	OnTokenRefresh TokenUpdateFunc

	Server   string
	Port     int
	Username string
	Password string
}

// MessageSummary is one list entry returned by a provider page.
type MessageSummary struct {
	ProviderMessageID string
	ThreadID          string
	Sender            string
	Subject           string
	Snippet           string
	Labels            []string
	Unread            bool
	ReceivedAt        time.Time
}

// MessageDetail is a fully fetched message.
type MessageDetail struct {
	MessageSummary
	Body string
}

// MailProvider is the capability set the sync engine needs from a mailbox
// provider. The cursor is an opaque token owned by the implementation; callers
// round-trip it verbatim and must not assume timestamp or token semantics.
//
// Implementations fail with *RateLimitedError, ErrAuthExpired,
// *TransientError or *PermanentError; those four kinds are the only ones the
// sync engine distinguishes.
type MailProvider interface {
	// ListSince returns message summaries at or after the cursor position,
	// in provider order, plus the cursor for the next call.
	ListSince(ctx context.Context, creds ProviderCredentials, cursor string, pageSize int) (page []*MessageSummary, nextCursor string, hasMore bool, err error)

	// FetchDetail fetches one message by provider id. A missing message is
	// reported as ErrMessageNotFound.
	FetchDetail(ctx context.Context, creds ProviderCredentials, providerMessageID string) (*MessageDetail, error)
}

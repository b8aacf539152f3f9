package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = maildomain.TokenUpdateFunc

// Service talks to the Gmail API on behalf of a connected account and
// implements the mail provider contract used by the sync engine.
type Service struct {
	clientID     string
	clientSecret string
	windowDays   int
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		// Block on the callback so a refreshed token is persisted before any
		// request uses it.
		if err := s.callback(t); err != nil {
			fmt.Printf("Failed to update token: %v\n", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string, windowDays int) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		windowDays:   windowDays,
	}
}

// gmailService creates a Gmail client with the account's tokens, wrapping the
// token source so silent refreshes are written back to the account record.
func (s *Service) gmailService(ctx context.Context, creds maildomain.ProviderCredentials) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if creds.RefreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: creds.OnTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return srv, nil
}

// cursorState is the decoded form of the opaque sync cursor. The watermark is
// the unix-seconds lower bound of the current listing; pageToken resumes a
// listing mid-flight; candidate is the watermark the cursor promotes to once
// the listing reaches its final page. Keeping the candidate inside the cursor
// means an interrupted listing resumes where it left off and never skips the
// window it was still walking.
type cursorState struct {
	watermark int64
	pageToken string
	candidate int64
}

func parseCursor(cursor string) cursorState {
	var st cursorState
	if cursor == "" {
		return st
	}
	parts := strings.SplitN(cursor, "|", 3)
	st.watermark, _ = strconv.ParseInt(parts[0], 10, 64)
	if len(parts) > 1 {
		st.pageToken = parts[1]
	}
	if len(parts) > 2 {
		st.candidate, _ = strconv.ParseInt(parts[2], 10, 64)
	}
	return st
}

func encodeCursor(st cursorState) string {
	return fmt.Sprintf("%d|%s|%d", st.watermark, st.pageToken, st.candidate)
}

// ListSince lists inbox messages received at or after the cursor's watermark,
// one page per call. The returned cursor advances the watermark only when the
// final page has been reached, so a listing interrupted mid-way replays from
// the same window on the next sync.
func (s *Service) ListSince(ctx context.Context, creds maildomain.ProviderCredentials, cursor string, pageSize int) ([]*maildomain.MessageSummary, string, bool, error) {
	srv, err := s.gmailService(ctx, creds)
	if err != nil {
		return nil, "", false, classifyError(err)
	}

	st := parseCursor(cursor)
	if st.watermark == 0 {
		st.watermark = time.Now().AddDate(0, 0, -s.windowDays).Unix()
	}
	if st.pageToken == "" {
		// Fresh listing: anything arriving from now on belongs to the next one.
		st.candidate = time.Now().Unix()
	}

	user := "me"
	q := fmt.Sprintf("in:inbox after:%d", st.watermark)

	listCall := srv.Users.Messages.List(user).Q(q).MaxResults(int64(pageSize)).Context(ctx)
	if st.pageToken != "" {
		listCall = listCall.PageToken(st.pageToken)
	}

	resp, err := listCall.Do()
	if err != nil {
		return nil, "", false, classifyError(err)
	}

	page := make([]*maildomain.MessageSummary, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := srv.Users.Messages.Get(user, m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From").
			Context(ctx).
			Do()
		if err != nil {
			return nil, "", false, classifyError(err)
		}
		page = append(page, summaryFromMessage(msg))
	}

	if resp.NextPageToken != "" {
		next := encodeCursor(cursorState{
			watermark: st.watermark,
			pageToken: resp.NextPageToken,
			candidate: st.candidate,
		})
		return page, next, true, nil
	}

	return page, encodeCursor(cursorState{watermark: st.candidate}), false, nil
}

// FetchDetail retrieves one message in full, including its decoded body.
func (s *Service) FetchDetail(ctx context.Context, creds maildomain.ProviderCredentials, providerMessageID string) (*maildomain.MessageDetail, error) {
	srv, err := s.gmailService(ctx, creds)
	if err != nil {
		return nil, classifyError(err)
	}

	msg, err := srv.Users.Messages.Get("me", providerMessageID).Format("full").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, maildomain.ErrMessageNotFound
		}
		return nil, classifyError(err)
	}

	body, _ := messageBody(msg.Payload)

	return &maildomain.MessageDetail{
		MessageSummary: *summaryFromMessage(msg),
		Body:           body,
	}, nil
}

func summaryFromMessage(msg *gmail.Message) *maildomain.MessageSummary {
	var sender, subject string
	if msg.Payload != nil {
		sender = getHeader(msg.Payload.Headers, "From")
		subject = getHeader(msg.Payload.Headers, "Subject")
	}

	return &maildomain.MessageSummary{
		ProviderMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		Sender:            sender,
		Subject:           subject,
		Snippet:           msg.Snippet,
		Labels:            msg.LabelIds,
		Unread:            hasLabel(msg.LabelIds, "UNREAD"),
		ReceivedAt:        time.Unix(msg.InternalDate/1000, 0),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func messageBody(payload *gmail.MessagePart) (string, bool) {
	if payload == nil {
		return "", false
	}

	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						htmlBody = string(data)
					}
				}
			} else if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						plainBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

// classifyError maps Gmail API failures onto the provider error taxonomy.
// Anything unrecognized is treated as transient so the engine retries it.
func classifyError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return &maildomain.RateLimitedError{RetryAfter: retryAfterHint(gerr)}
		case gerr.Code == http.StatusUnauthorized:
			return maildomain.ErrAuthExpired
		case gerr.Code == http.StatusForbidden && hasRateReason(gerr):
			return &maildomain.RateLimitedError{RetryAfter: retryAfterHint(gerr)}
		case gerr.Code >= 500:
			return &maildomain.TransientError{Err: gerr}
		default:
			return &maildomain.PermanentError{Err: gerr}
		}
	}

	// A failed token refresh (revoked grant, expired refresh token) surfaces
	// as an oauth2 retrieve error, not an API status.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return maildomain.ErrAuthExpired
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	return &maildomain.TransientError{Err: err}
}

// hasRateReason reports whether a 403 is Gmail quota throttling rather than a
// real permission failure.
func hasRateReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}

func retryAfterHint(gerr *googleapi.Error) time.Duration {
	if gerr.Header == nil {
		return 0
	}
	raw := gerr.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

package imapclient

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service syncs messages from a generic IMAP mailbox and implements the mail
// provider contract used by the sync engine.
type Service struct {
	windowDays int
}

func NewService(windowDays int) *Service {
	return &Service{
		windowDays: windowDays,
	}
}

// connect dials, authenticates and selects INBOX read-only. The caller owns
// the returned client and must Logout.
func (s *Service) connect(ctx context.Context, creds maildomain.ProviderCredentials) (*client.Client, *imap.MailboxStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	addr := fmt.Sprintf("%s:%d", creds.Server, creds.Port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, nil, &maildomain.TransientError{Err: fmt.Errorf("dial %s: %w", addr, err)}
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, nil, maildomain.ErrAuthExpired
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		_ = c.Logout()
		return nil, nil, &maildomain.TransientError{Err: fmt.Errorf("select INBOX: %w", err)}
	}

	return c, mbox, nil
}

// cursorState tracks sync position as the highest UID already seen, scoped to
// the mailbox's UIDVALIDITY. A validity change means the server renumbered the
// mailbox and the saved UID is meaningless, so the listing restarts from the
// time window.
type cursorState struct {
	uidValidity uint32
	lastUID     uint32
}

func parseCursor(cursor string) cursorState {
	var st cursorState
	if cursor == "" {
		return st
	}
	parts := strings.SplitN(cursor, "|", 2)
	if v, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
		st.uidValidity = uint32(v)
	}
	if len(parts) > 1 {
		if v, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
			st.lastUID = uint32(v)
		}
	}
	return st
}

func encodeCursor(st cursorState) string {
	return fmt.Sprintf("%d|%d", st.uidValidity, st.lastUID)
}

// ListSince returns one page of message summaries with UIDs above the
// cursor's position, oldest first. The cursor only advances past a message
// once that message has been returned, so interrupted listings resume without
// gaps.
func (s *Service) ListSince(ctx context.Context, creds maildomain.ProviderCredentials, cursor string, pageSize int) ([]*maildomain.MessageSummary, string, bool, error) {
	c, mbox, err := s.connect(ctx, creds)
	if err != nil {
		return nil, "", false, err
	}
	defer c.Logout()

	st := parseCursor(cursor)
	if st.uidValidity != mbox.UidValidity {
		st = cursorState{uidValidity: mbox.UidValidity}
	}

	criteria := imap.NewSearchCriteria()
	if st.lastUID == 0 {
		criteria.Since = time.Now().AddDate(0, 0, -s.windowDays)
	} else {
		seq := new(imap.SeqSet)
		seq.AddRange(st.lastUID+1, 0)
		criteria.Uid = seq
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, "", false, &maildomain.TransientError{Err: fmt.Errorf("uid search: %w", err)}
	}

	// A range starting past the highest UID still matches the last message on
	// some servers; drop anything at or below the cursor.
	fresh := uids[:0]
	for _, uid := range uids {
		if uid > st.lastUID {
			fresh = append(fresh, uid)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })

	if len(fresh) == 0 {
		return nil, encodeCursor(st), false, nil
	}

	hasMore := false
	if pageSize > 0 && len(fresh) > pageSize {
		fresh = fresh[:pageSize]
		hasMore = true
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(fresh...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, imap.FetchInternalDate}
	messages := make(chan *imap.Message, len(fresh))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	page := make([]*maildomain.MessageSummary, 0, len(fresh))
	for msg := range messages {
		page = append(page, summaryFromMessage(msg))
	}
	if err := <-done; err != nil {
		return nil, "", false, &maildomain.TransientError{Err: fmt.Errorf("uid fetch: %w", err)}
	}

	sort.Slice(page, func(i, j int) bool { return page[i].ReceivedAt.Before(page[j].ReceivedAt) })

	st.lastUID = fresh[len(fresh)-1]
	return page, encodeCursor(st), hasMore, nil
}

// FetchDetail fetches one message in full by its UID.
func (s *Service) FetchDetail(ctx context.Context, creds maildomain.ProviderCredentials, providerMessageID string) (*maildomain.MessageDetail, error) {
	uid, err := strconv.ParseUint(providerMessageID, 10, 32)
	if err != nil {
		return nil, maildomain.ErrMessageNotFound
	}

	c, _, err := s.connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}
	if err := <-done; err != nil {
		return nil, &maildomain.TransientError{Err: fmt.Errorf("uid fetch: %w", err)}
	}
	if msg == nil {
		return nil, maildomain.ErrMessageNotFound
	}

	detail := &maildomain.MessageDetail{
		MessageSummary: *summaryFromMessage(msg),
	}

	if r := msg.GetBody(section); r != nil {
		detail.Body = parseBody(r)
	}

	return detail, nil
}

func summaryFromMessage(msg *imap.Message) *maildomain.MessageSummary {
	summary := &maildomain.MessageSummary{
		ProviderMessageID: strconv.FormatUint(uint64(msg.Uid), 10),
		Unread:            true,
		ReceivedAt:        msg.InternalDate,
	}

	if env := msg.Envelope; env != nil {
		summary.Subject = env.Subject
		// IMAP has no thread id; the Message-ID keeps each message in its
		// own thread rather than falsely grouping everything together.
		summary.ThreadID = env.MessageId
		if summary.ThreadID == "" {
			summary.ThreadID = summary.ProviderMessageID
		}
		if len(env.From) > 0 {
			summary.Sender = formatAddress(env.From[0])
		}
		if summary.ReceivedAt.IsZero() {
			summary.ReceivedAt = env.Date
		}
	}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			summary.Unread = false
		}
	}

	return summary
}

func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}

// parseBody extracts the message body from a raw RFC 822 literal, preferring
// HTML over plain text to mirror what other providers return.
func parseBody(r io.Reader) string {
	mr, err := mail.CreateReader(r)
	if err != nil {
		raw, readErr := io.ReadAll(r)
		if readErr != nil {
			return ""
		}
		return string(raw)
	}
	defer mr.Close()

	var htmlBody, plainBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		case strings.HasPrefix(contentType, "text/plain"):
			plainBody = string(body)
		}
	}

	if htmlBody != "" {
		return htmlBody
	}
	return plainBody
}

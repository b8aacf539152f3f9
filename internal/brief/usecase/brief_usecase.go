package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	accountrepo "github.com/mdonangelo-tech/chiefos-backend/internal/account/repository"
	briefdomain "github.com/mdonangelo-tech/chiefos-backend/internal/brief/domain"
	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"
	mailrepo "github.com/mdonangelo-tech/chiefos-backend/internal/mail/repository"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/config"
	"github.com/mdonangelo-tech/chiefos-backend/pkg/normalize"
)

// BriefUsecase defines the interface for brief aggregation.
type BriefUsecase interface {
	// BuildBrief derives the user's prioritized summary from the message
	// store. A user with no eligible messages gets a valid empty brief,
	// not an error.
	BuildBrief(ctx context.Context, userID string) (*briefdomain.Brief, error)
}

var sectionTitles = map[string]string{
	briefdomain.SectionNeedsAttention: "Needs attention",
	briefdomain.SectionConversations:  "Conversations",
	briefdomain.SectionEverythingElse: "Everything else",
}

// sectionOrder is the fixed priority order sections appear in.
var sectionOrder = []string{
	briefdomain.SectionNeedsAttention,
	briefdomain.SectionConversations,
	briefdomain.SectionEverythingElse,
}

// briefUsecase implements BriefUsecase interface. Pure read path: it never
// mutates the message store and takes no locks, relying on per-row upsert
// atomicity for consistency with concurrent syncs.
type briefUsecase struct {
	messageRepo mailrepo.MessageRepository
	accountRepo accountrepo.AccountRepository
	config      *config.Config

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewBriefUsecase creates a new instance of briefUsecase
func NewBriefUsecase(messageRepo mailrepo.MessageRepository, accountRepo accountrepo.AccountRepository, cfg *config.Config) BriefUsecase {
	return &briefUsecase{
		messageRepo: messageRepo,
		accountRepo: accountRepo,
		config:      cfg,
		now:         time.Now,
	}
}

func (u *briefUsecase) BuildBrief(ctx context.Context, userID string) (*briefdomain.Brief, error) {
	now := u.now()

	accounts, err := u.accountRepo.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}
	accountTypes := make(map[string]normalize.AccountType, len(accounts))
	for _, a := range accounts {
		accountTypes[a.ID] = a.Type
	}

	since := now.AddDate(0, 0, -u.config.BriefWindowDays)
	messages, err := u.messageRepo.ListRecentByUser(userID, since, u.config.BriefMaxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	brief := &briefdomain.Brief{
		UserID:      userID,
		GeneratedAt: now,
		Sections:    []*briefdomain.Section{},
	}
	if len(messages) == 0 {
		return brief, nil
	}

	// Messages sharing a thread with at least one sibling count as
	// conversations.
	threadSizes := make(map[string]int)
	for _, m := range messages {
		if m.ThreadID != "" {
			threadSizes[m.ThreadID]++
		}
	}

	grouped := map[string][]*briefdomain.Item{}
	for _, m := range messages {
		item := &briefdomain.Item{
			MessageID:  m.ID,
			AccountID:  m.AccountID,
			Subject:    m.Subject,
			Sender:     m.Sender,
			Snippet:    m.Snippet,
			Unread:     m.Unread && !m.ReadLocally,
			ReceivedAt: m.ReceivedAt,
			Score:      u.score(m, accountTypes[m.AccountID], now),
		}

		sectionID := u.classify(m, accountTypes[m.AccountID], threadSizes)
		grouped[sectionID] = append(grouped[sectionID], item)
	}

	for _, sectionID := range sectionOrder {
		items := grouped[sectionID]
		if len(items) == 0 {
			continue
		}

		// Score desc, then recency desc, then message id asc: a total
		// order, so repeated builds over an unchanged store are
		// byte-identical.
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Score != items[j].Score {
				return items[i].Score > items[j].Score
			}
			if !items[i].ReceivedAt.Equal(items[j].ReceivedAt) {
				return items[i].ReceivedAt.After(items[j].ReceivedAt)
			}
			return items[i].MessageID < items[j].MessageID
		})

		brief.Sections = append(brief.Sections, &briefdomain.Section{
			ID:    sectionID,
			Title: sectionTitles[sectionID],
			Items: items,
		})
	}

	return brief, nil
}

func (u *briefUsecase) classify(m *maildomain.Message, accountType normalize.AccountType, threadSizes map[string]int) string {
	unread := m.Unread && !m.ReadLocally
	switch {
	case unread && accountType == normalize.AccountTypeWork:
		return briefdomain.SectionNeedsAttention
	case m.ThreadID != "" && threadSizes[m.ThreadID] > 1:
		return briefdomain.SectionConversations
	default:
		return briefdomain.SectionEverythingElse
	}
}

// score combines recency decay with unread and work-account signals. The
// weights and half-life come from configuration.
func (u *briefUsecase) score(m *maildomain.Message, accountType normalize.AccountType, now time.Time) float64 {
	age := now.Sub(m.ReceivedAt)
	if age < 0 {
		age = 0
	}

	halfLife := u.config.BriefRecencyHalfLife
	if halfLife <= 0 {
		halfLife = 24 * time.Hour
	}

	score := u.config.BriefRecencyWeight * math.Pow(0.5, age.Hours()/halfLife.Hours())
	if m.Unread && !m.ReadLocally {
		score += u.config.BriefUnreadWeight
	}
	if accountType == normalize.AccountTypeWork {
		score += u.config.BriefWorkWeight
	}
	return score
}

package domain

import "time"

// Section identifiers, in fixed priority order.
const (
	SectionNeedsAttention = "needs_attention"
	SectionConversations  = "conversations"
	SectionEverythingElse = "everything_else"
)

// Item is one scored brief entry referencing a source message.
type Item struct {
	MessageID  string    `json:"message_id"`
	AccountID  string    `json:"account_id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Snippet    string    `json:"snippet"`
	Unread     bool      `json:"unread"`
	ReceivedAt time.Time `json:"received_at"`
	Score      float64   `json:"score"`
}

// Section groups items under one taxonomy bucket, sorted by descending score.
type Section struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Items []*Item `json:"items"`
}

// Brief is the derived daily summary for one user. It is recomputed on
// demand, never mutated in place, and is deterministic for a given message
// store snapshot.
type Brief struct {
	UserID      string     `json:"user_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Sections    []*Section `json:"sections"`
}

package domain

// SyncOutcome is the per-account (and aggregate) result of a sync run.
type SyncOutcome string

const (
	SyncOK      SyncOutcome = "ok"
	SyncPartial SyncOutcome = "partial"
	SyncFailed  SyncOutcome = "failed"
)

// SyncCounts tallies what one account's run did.
type SyncCounts struct {
	Fetched int `json:"fetched"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SyncResult is the ephemeral per-account outcome of one sync run. It is
// returned to the caller and never persisted.
type SyncResult struct {
	AccountID string      `json:"account_id"`
	Address   string      `json:"address"`
	Outcome   SyncOutcome `json:"outcome"`
	Counts    SyncCounts  `json:"counts"`
	Error     string      `json:"error,omitempty"`
	ErrorKind ErrorKind   `json:"error_kind,omitempty"`
}

// SyncReport aggregates the per-account results of one sync invocation.
// Account failures never abort siblings; they surface here instead.
type SyncReport struct {
	Outcome  SyncOutcome   `json:"outcome"`
	Accounts []*SyncResult `json:"accounts"`
}

// Aggregate derives the overall outcome: ok when every account succeeded,
// failed when every account failed, partial otherwise.
func (r *SyncReport) Aggregate() {
	if len(r.Accounts) == 0 {
		r.Outcome = SyncOK
		return
	}

	okCount, failCount := 0, 0
	for _, res := range r.Accounts {
		switch res.Outcome {
		case SyncOK:
			okCount++
		case SyncFailed:
			failCount++
		}
	}

	switch {
	case okCount == len(r.Accounts):
		r.Outcome = SyncOK
	case failCount == len(r.Accounts):
		r.Outcome = SyncFailed
	default:
		r.Outcome = SyncPartial
	}
}

package repository

import (
	"testing"
	"time"

	maildomain "github.com/mdonangelo-tech/chiefos-backend/internal/mail/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	// One in-memory database per test; cache=shared keeps it alive across
	// the pool's connections.
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&maildomain.Message{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func sampleMessage(accountID, providerID string, receivedAt time.Time) *maildomain.Message {
	return &maildomain.Message{
		AccountID:         accountID,
		UserID:            "user-1",
		ProviderMessageID: providerID,
		ThreadID:          "thread-1",
		Sender:            "alice@acme.io",
		Subject:           "Quarterly planning",
		Snippet:           "Draft agenda attached",
		Unread:            true,
		ReceivedAt:        receivedAt,
	}
}

func TestUpsertCreatesThenSkips(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	received := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	outcome, err := repo.Upsert(sampleMessage("acct-1", "msg-1", received))
	require.NoError(t, err)
	require.Equal(t, maildomain.UpsertCreated, outcome)

	// Same provider content again: idempotent, no second row.
	outcome, err = repo.Upsert(sampleMessage("acct-1", "msg-1", received))
	require.NoError(t, err)
	require.Equal(t, maildomain.UpsertSkipped, outcome)

	msgs, err := repo.ListRecentByUser("user-1", received.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestUpsertUpdatesChangedContent(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	received := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	_, err := repo.Upsert(sampleMessage("acct-1", "msg-1", received))
	require.NoError(t, err)

	changed := sampleMessage("acct-1", "msg-1", received)
	changed.Unread = false
	changed.Labels = "INBOX"

	outcome, err := repo.Upsert(changed)
	require.NoError(t, err)
	require.Equal(t, maildomain.UpsertUpdated, outcome)

	msgs, err := repo.ListRecentByUser("user-1", received.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.False(t, msgs[0].Unread)
	require.Equal(t, "INBOX", msgs[0].Labels)
}

func TestUpsertPreservesLocalReadState(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	received := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	_, err := repo.Upsert(sampleMessage("acct-1", "msg-1", received))
	require.NoError(t, err)

	msgs, err := repo.ListRecentByUser("user-1", received.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.NoError(t, repo.SetReadLocally("user-1", msgs[0].ID, true))

	// Provider content changes, but the local read marker must survive.
	changed := sampleMessage("acct-1", "msg-1", received)
	changed.Subject = "Quarterly planning (updated)"
	outcome, err := repo.Upsert(changed)
	require.NoError(t, err)
	require.Equal(t, maildomain.UpsertUpdated, outcome)

	got, err := repo.GetByID("user-1", msgs[0].ID)
	require.NoError(t, err)
	require.True(t, got.ReadLocally)
	require.Equal(t, "Quarterly planning (updated)", got.Subject)
}

func TestListRecentByUserOrdering(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"m-b", "m-a", "m-c"} {
		msg := sampleMessage("acct-1", id, base.Add(time.Duration(i)*time.Hour))
		_, err := repo.Upsert(msg)
		require.NoError(t, err)
	}

	msgs, err := repo.ListRecentByUser("user-1", base.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Newest first.
	require.Equal(t, "m-c", msgs[0].ProviderMessageID)
	require.Equal(t, "m-a", msgs[1].ProviderMessageID)
	require.Equal(t, "m-b", msgs[2].ProviderMessageID)

	// Window filter excludes older mail.
	msgs, err = repo.ListRecentByUser("user-1", base.Add(90*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestDeleteByAccount(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	received := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	_, err := repo.Upsert(sampleMessage("acct-1", "msg-1", received))
	require.NoError(t, err)
	_, err = repo.Upsert(sampleMessage("acct-2", "msg-1", received))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByAccount("acct-1"))

	msgs, err := repo.ListRecentByUser("user-1", received.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "acct-2", msgs[0].AccountID)
}

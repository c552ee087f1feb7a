package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/database/dbtest"
	"github.com/mrlokans/campuslib/internal/entities"
)

func setupTestRepo(t *testing.T) *Repository {
	return NewRepository(dbtest.New(t).DB)
}

func TestRepository_LogEvent(t *testing.T) {
	repo := setupTestRepo(t)

	bookID := uint(7)
	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventLending,
		Action:      "request_accept",
		Description: "Accepted request for Compilers",
		EntityType:  "loan",
		EntityID:    &bookID,
		Metadata:    []byte(`{"due_at":"2031-01-06"}`),
		Status:      entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.LogEvent(event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	events, total, err := repo.FindEvents(Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.JSONEq(t, `{"due_at":"2031-01-06"}`, string(events[0].Metadata))
}

func TestRepository_FindEvents(t *testing.T) {
	repo := setupTestRepo(t)

	loanID := uint(3)
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: entities.AuditEventAuth, Action: "login"}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 2, EventType: entities.AuditEventLending, Action: "loan_return", EntityType: "loan", EntityID: &loanID}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 2, EventType: entities.AuditEventBooking, Action: "booking_create"}))

	t.Run("by user", func(t *testing.T) {
		_, total, err := repo.FindEvents(Query{UserID: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("by type", func(t *testing.T) {
		events, total, err := repo.FindEvents(Query{EventType: entities.AuditEventAuth})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "login", events[0].Action)
	})

	t.Run("by entity", func(t *testing.T) {
		events, _, err := repo.FindEvents(Query{EntityType: "loan", EntityID: loanID})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "loan_return", events[0].Action)
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.FindEvents(Query{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, events, 1)
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{Action: "old", CreatedAt: time.Now().AddDate(0, 0, -100)}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{Action: "new"}))

	deleted, err := repo.DeleteOldEvents(time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, _, err := repo.FindEvents(Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Action)
}

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitStampsIdentityAndTime(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)

	err := svc.Emit(context.Background(), Entry{
		ActorID: "10001",
		Action:  ActionVoteSubmitted,
	})
	require.NoError(t, err)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestListPaginates(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Emit(ctx, Entry{
			ActorID:   "10001",
			Action:    ActionPaperVoteRegistered,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Entries, 2)
	assert.True(t, page.Entries[0].Timestamp.After(page.Entries[1].Timestamp), "newest first")

	last, err := svc.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Entries, 1)

	beyond, err := svc.List(ctx, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Entries)
}

func TestListDefaultsPageAndLimit(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	page, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageLimit, page.Limit)
}

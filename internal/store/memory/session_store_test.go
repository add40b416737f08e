package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

func TestSessionStore(t *testing.T) {
	st := NewSessionStore()
	ctx := context.Background()
	now := time.Now()

	live := &models.Session{
		SessionID:  uuid.New(),
		UserID:     uuid.New(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		LastUsedAt: now,
	}
	expired := &models.Session{
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, st.Create(ctx, live))
	require.NoError(t, st.Create(ctx, expired))

	got, err := st.Get(ctx, live.SessionID)
	require.NoError(t, err)
	require.Equal(t, live.UserID, got.UserID)

	_, err = st.Get(ctx, expired.SessionID)
	require.ErrorIs(t, err, store.ErrSessionExpired)

	_, err = st.Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	require.NoError(t, st.UpdateLastUsed(ctx, live.SessionID))
	require.ErrorIs(t, st.UpdateLastUsed(ctx, uuid.New()), store.ErrSessionNotFound)

	count, err := st.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, st.Delete(ctx, live.SessionID))
	require.ErrorIs(t, st.Delete(ctx, live.SessionID), store.ErrSessionNotFound)
}

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

func TestUserStore(t *testing.T) {
	st := NewUserStore()
	ctx := context.Background()

	user := &models.User{
		UserID:       uuid.New(),
		Email:        "Pastor@Example.com",
		Name:         "Pastor",
		PasswordHash: []byte("hash"),
		Metadata:     map[string]string{models.MetaIntent: models.IntentJoinOrganization},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, st.Create(ctx, user))

	t.Run("duplicate email is case insensitive", func(t *testing.T) {
		dup := &models.User{UserID: uuid.New(), Email: "pastor@example.com"}
		require.ErrorIs(t, st.Create(ctx, dup), store.ErrUserAlreadyExists)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := st.GetByEmail(ctx, "PASTOR@example.com")
		require.NoError(t, err)
		require.Equal(t, user.UserID, got.UserID)
		require.Equal(t, "pastor@example.com", got.Email)
		require.Equal(t, models.IntentJoinOrganization, got.Metadata[models.MetaIntent])
	})

	t.Run("missing", func(t *testing.T) {
		_, err := st.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = st.GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("super admin flag", func(t *testing.T) {
		ok, err := st.IsSuperAdmin(ctx, user.UserID)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, st.SetSuperAdmin(ctx, user.UserID, true))

		ok, err = st.IsSuperAdmin(ctx, user.UserID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = st.IsSuperAdmin(ctx, uuid.New())
		require.NoError(t, err)
		require.False(t, ok)

		require.ErrorIs(t, st.SetSuperAdmin(ctx, uuid.New(), true), store.ErrUserNotFound)
	})
}

func TestUserStore_Delete(t *testing.T) {
	st := NewUserStore()
	ctx := context.Background()

	user := &models.User{UserID: uuid.New(), Email: "admin@grace.org"}
	require.NoError(t, st.Create(ctx, user))

	require.NoError(t, st.Delete(ctx, user.UserID))
	_, err := st.GetByEmail(ctx, "admin@grace.org")
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.ErrorIs(t, st.Delete(ctx, user.UserID), store.ErrUserNotFound)

	// the email can be registered again
	require.NoError(t, st.Create(ctx, &models.User{UserID: uuid.New(), Email: "admin@grace.org"}))
}

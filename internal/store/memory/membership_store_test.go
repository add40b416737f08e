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

func TestMembershipStore(t *testing.T) {
	st := NewMembershipStore()
	ctx := context.Background()

	userID := uuid.New()
	orgA := uuid.New()
	orgB := uuid.New()

	require.NoError(t, st.Create(ctx, &models.Membership{OrgID: orgA, UserID: userID, Role: models.MembershipRoleMember, CreatedAt: time.Now()}))
	require.NoError(t, st.Create(ctx, &models.Membership{OrgID: orgB, UserID: userID, Role: models.MembershipRoleEditor, CreatedAt: time.Now()}))

	t.Run("duplicate", func(t *testing.T) {
		err := st.Create(ctx, &models.Membership{OrgID: orgA, UserID: userID, Role: models.MembershipRoleAdmin})
		require.ErrorIs(t, err, store.ErrMembershipAlreadyExists)
	})

	t.Run("get", func(t *testing.T) {
		m, err := st.Get(ctx, orgB, userID)
		require.NoError(t, err)
		require.Equal(t, models.MembershipRoleEditor, m.Role)

		_, err = st.Get(ctx, uuid.New(), userID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)
	})

	t.Run("list all", func(t *testing.T) {
		ms, err := st.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, ms, 2)
	})

	t.Run("list administrative", func(t *testing.T) {
		ms, err := st.ListByUser(ctx, userID, models.AdministrativeRoles...)
		require.NoError(t, err)
		require.Len(t, ms, 1)
		require.Equal(t, orgB, ms[0].OrgID)
	})

	t.Run("organization ids", func(t *testing.T) {
		ids, err := st.ListOrganizationIDs(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{orgA, orgB}, ids)

		ids, err = st.ListOrganizationIDs(ctx, uuid.New())
		require.NoError(t, err)
		require.Empty(t, ids)
	})
}

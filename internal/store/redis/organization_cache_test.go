package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/store/memory"
)

func TestOrganizationCache_FallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()

	inner := memory.NewOrganizationStore()
	sub := "grace"
	org := &models.Organization{
		OrgID:     uuid.Must(uuid.NewV7()),
		Name:      "Grace Church",
		Subdomain: &sub,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, inner.Create(ctx, org))

	// nothing listens on port 1
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewOrganizationCache(inner, client, Config{})

	got, err := cache.GetBySubdomain(ctx, "grace")
	require.NoError(t, err)
	require.Equal(t, org.OrgID, got.OrgID)

	got, err = cache.Get(ctx, org.OrgID)
	require.NoError(t, err)
	require.Equal(t, "Grace Church", got.Name)

	_, err = cache.GetByCustomDomain(ctx, "nowhere.org")
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	org.Name = "Grace Community Church"
	require.NoError(t, cache.Update(ctx, org))

	require.NoError(t, cache.Delete(ctx, org.OrgID))
	_, err = cache.GetBySubdomain(ctx, "grace")
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	require.ErrorIs(t, cache.Delete(ctx, org.OrgID), store.ErrOrganizationNotFound)
}

func TestOrganizationCache_Keys(t *testing.T) {
	cache := NewOrganizationCache(memory.NewOrganizationStore(), nil, Config{KeyPrefix: "test"})

	sub, domain := "Grace", "GraceChurch.org"
	org := &models.Organization{OrgID: uuid.MustParse("0192a1b2-0000-7000-8000-000000000001"), Subdomain: &sub, CustomDomain: &domain}

	require.Equal(t, []string{
		"test:org:id:0192a1b2-0000-7000-8000-000000000001",
		"test:org:sub:grace",
		"test:org:domain:gracechurch.org",
	}, cache.keysFor(org))

	require.Equal(t, DefaultTTL, cache.ttl)
}

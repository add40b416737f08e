package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/steeple/internal/store"
	memorystore "github.com/wolfeidau/steeple/internal/store/memory"
	postgresstore "github.com/wolfeidau/steeple/internal/store/postgres"
	redisstore "github.com/wolfeidau/steeple/internal/store/redis"
)

type stores struct {
	Organizations store.OrganizationStore
	Memberships   store.MembershipStore
	Users         store.UserStore
	Sessions      store.SessionStore

	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores creates the stores for storeType and, when redis is enabled,
// puts the organization cache in front of the organization store.
func openStores(ctx context.Context, log zerolog.Logger, storeType string, pg *PostgresStoreFlags, rd *RedisFlags) (*stores, error) {
	s := &stores{}

	switch storeType {
	case "postgres":
		if err := pg.Validate(); err != nil {
			return nil, err
		}

		// Create shared connection pool for all PostgreSQL stores
		pool, err := postgresstore.NewPool(ctx, pg.poolConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		s.Organizations = postgresstore.NewOrganizationStore(pool)
		s.Memberships = postgresstore.NewMembershipStore(pool)
		s.Users = postgresstore.NewUserStore(pool)
		s.Sessions = postgresstore.NewSessionStore(pool)

		log.Info().Bool("auto_migrate", pg.AutoMigrate).Msg("Using PostgreSQL stores with shared connection pool")

	default:
		s.Organizations = memorystore.NewOrganizationStore()
		s.Memberships = memorystore.NewMembershipStore()
		s.Users = memorystore.NewUserStore()
		s.Sessions = memorystore.NewSessionStore()
		log.Info().Msg("Using in-memory stores")
	}

	if rd.Enabled() {
		cfg := rd.config()
		client, err := redisstore.NewClient(ctx, &cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Organizations = redisstore.NewOrganizationCache(s.Organizations, client, cfg)
		log.Info().Str("addr", rd.Addr).Dur("ttl", rd.TTL).Msg("Organization cache enabled")
	}

	return s, nil
}

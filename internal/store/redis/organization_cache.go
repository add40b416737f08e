// Package redis provides a read-through cache for organization lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

// DefaultTTL is used when Config.TTL is zero.
const DefaultTTL = 5 * time.Minute

// Config configures the redis connection backing the cache.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "steeple"
	}
}

// NewClient creates a redis client and checks connectivity.
func NewClient(ctx context.Context, cfg *Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// OrganizationCache decorates a store.OrganizationStore, caching single
// organization lookups in redis. Cache failures are logged and the inner
// store is used instead, so redis is never on the critical path.
type OrganizationCache struct {
	inner  store.OrganizationStore
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
}

var _ store.OrganizationStore = (*OrganizationCache)(nil)

// NewOrganizationCache wraps inner with a redis cache.
func NewOrganizationCache(inner store.OrganizationStore, client goredis.UniversalClient, cfg Config) *OrganizationCache {
	cfg.ApplyDefaults()
	return &OrganizationCache{
		inner:  inner,
		client: client,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
	}
}

func (c *OrganizationCache) idKey(orgID uuid.UUID) string {
	return c.prefix + ":org:id:" + orgID.String()
}

func (c *OrganizationCache) subdomainKey(subdomain string) string {
	return c.prefix + ":org:sub:" + strings.ToLower(subdomain)
}

func (c *OrganizationCache) domainKey(domain string) string {
	return c.prefix + ":org:domain:" + strings.ToLower(domain)
}

// keysFor lists every key that can hold org.
func (c *OrganizationCache) keysFor(org *models.Organization) []string {
	keys := []string{c.idKey(org.OrgID)}
	if org.Subdomain != nil {
		keys = append(keys, c.subdomainKey(*org.Subdomain))
	}
	if org.CustomDomain != nil {
		keys = append(keys, c.domainKey(*org.CustomDomain))
	}
	return keys
}

// Create passes through to the inner store.
func (c *OrganizationCache) Create(ctx context.Context, org *models.Organization) error {
	return c.inner.Create(ctx, org)
}

// Get retrieves an organization by ID.
func (c *OrganizationCache) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	return c.readThrough(ctx, c.idKey(orgID), func(ctx context.Context) (*models.Organization, error) {
		return c.inner.Get(ctx, orgID)
	})
}

// GetBySubdomain retrieves an organization by subdomain.
func (c *OrganizationCache) GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error) {
	return c.readThrough(ctx, c.subdomainKey(subdomain), func(ctx context.Context) (*models.Organization, error) {
		return c.inner.GetBySubdomain(ctx, subdomain)
	})
}

// GetByCustomDomain retrieves an organization by custom domain.
func (c *OrganizationCache) GetByCustomDomain(ctx context.Context, domain string) (*models.Organization, error) {
	return c.readThrough(ctx, c.domainKey(domain), func(ctx context.Context) (*models.Organization, error) {
		return c.inner.GetByCustomDomain(ctx, domain)
	})
}

// Update writes through to the inner store then drops every key that
// referenced the old or new values.
func (c *OrganizationCache) Update(ctx context.Context, org *models.Organization) error {
	prev, err := c.inner.Get(ctx, org.OrgID)
	if err != nil {
		return err
	}

	if err := c.inner.Update(ctx, org); err != nil {
		return err
	}

	keys := append(c.keysFor(prev), c.keysFor(org)...)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("org_id", org.OrgID.String()).Msg("failed to invalidate organization cache")
	}

	return nil
}

// Delete removes the organization from the inner store and drops its keys.
func (c *OrganizationCache) Delete(ctx context.Context, orgID uuid.UUID) error {
	prev, err := c.inner.Get(ctx, orgID)
	if err != nil {
		return err
	}

	if err := c.inner.Delete(ctx, orgID); err != nil {
		return err
	}

	if err := c.client.Del(ctx, c.keysFor(prev)...).Err(); err != nil {
		log.Warn().Err(err).Str("org_id", orgID.String()).Msg("failed to invalidate organization cache")
	}

	return nil
}

// ListByIDs is not cached.
func (c *OrganizationCache) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	return c.inner.ListByIDs(ctx, orgIDs)
}

func (c *OrganizationCache) readThrough(ctx context.Context, key string, load func(context.Context) (*models.Organization, error)) (*models.Organization, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var org models.Organization
		if err := json.Unmarshal(data, &org); err == nil {
			log.Debug().Str("key", key).Msg("organization cache hit")
			return &org, nil
		}
		log.Warn().Str("key", key).Msg("discarding corrupt organization cache entry")
	case errors.Is(err, goredis.Nil):
		log.Debug().Str("key", key).Msg("organization cache miss")
	default:
		log.Warn().Err(err).Str("key", key).Msg("organization cache unavailable, reading from store")
		return load(ctx)
	}

	org, err := load(ctx)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(org)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal organization: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to populate organization cache")
	}

	return org, nil
}

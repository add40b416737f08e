// Package tenant resolves the organization a request is operating on behalf
// of and holds the per-request tenant context.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

// ResolverConfig configures retries for transient store failures.
type ResolverConfig struct {
	// MaxAttempts is the total number of lookup passes, including the first.
	MaxAttempts uint

	// BaseDelay is multiplied by the attempt number to get the wait before
	// the next attempt.
	BaseDelay time.Duration

	// Timeout bounds a shared lookup, which keeps running when the caller
	// that started it goes away.
	Timeout time.Duration
}

// DefaultResolverConfig returns three attempts with 1s, 2s waits.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Timeout:     15 * time.Second,
	}
}

// Resolution is a successfully resolved organization.
type Resolution struct {
	OrgID     uuid.UUID
	Name      string
	Subdomain string
}

// Resolver looks up the organization behind a subdomain token, organization
// ID or custom domain.
type Resolver struct {
	orgs    store.OrganizationStore
	cfg     ResolverConfig
	group   singleflight.Group
	metrics *telemetry.Metrics

	// onRetry observes each wait before a retry.
	onRetry func(wait time.Duration)
}

// NewResolver creates a Resolver. Zero config fields take their defaults.
func NewResolver(orgs store.OrganizationStore, cfg ResolverConfig) *Resolver {
	def := DefaultResolverConfig()
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Resolver{
		orgs:    orgs,
		cfg:     cfg,
		metrics: telemetry.GetMetrics(),
	}
}

// Resolve finds the organization for token (a subdomain label, full host or
// organization ID) arriving on host. All failures are returned as a
// *ResolutionError; concurrent calls for the same token and host share one
// lookup.
func (r *Resolver) Resolve(ctx context.Context, token, host string) (*Resolution, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	host = strings.ToLower(strings.TrimSpace(host))

	if token == "" {
		return nil, notFoundError(token)
	}

	// the shared lookup outlives the caller that started it; each caller
	// stops waiting when its own ctx is done
	ch := r.group.DoChan(token+"|"+host, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
		defer cancel()
		return r.resolve(lookupCtx, token, host)
	})

	select {
	case <-ctx.Done():
		return nil, unavailableError(token, ctx.Err())
	case result := <-ch:
		if result.Shared {
			log.Debug().Str("token", token).Msg("shared in-flight tenant resolution")
		}
		if result.Err != nil {
			return nil, result.Err
		}
		res := *result.Val.(*Resolution)
		return &res, nil
	}
}

func (r *Resolver) resolve(ctx context.Context, token, host string) (*Resolution, error) {
	start := time.Now()

	attempt := 0
	org, err := backoff.Retry(ctx, func() (*models.Organization, error) {
		attempt++
		org, err := r.lookup(ctx, token, host)
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, backoff.Permanent(err)
		}
		return org, err
	},
		backoff.WithBackOff(&LinearBackOff{Step: r.cfg.BaseDelay}),
		backoff.WithMaxTries(r.cfg.MaxAttempts),
		backoff.WithMaxElapsedTime(r.cfg.Timeout),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if r.onRetry != nil {
				r.onRetry(wait)
			}
			r.metrics.TenantResolutionRetries.Add(ctx, 1)
			log.Warn().
				Err(err).
				Str("token", token).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("transient error resolving organization, retrying")
		}),
	)

	elapsed := float64(time.Since(start).Milliseconds())

	switch {
	case errors.Is(err, store.ErrOrganizationNotFound):
		r.metrics.RecordResolution(ctx, string(KindNotFound), elapsed)
		log.Info().Str("token", token).Str("host", host).Msg("organization not found")
		return nil, notFoundError(token)

	case err != nil:
		r.metrics.RecordResolution(ctx, string(KindUnavailable), elapsed)
		log.Error().Err(err).Str("token", token).Int("attempts", attempt).Msg("organization lookup failed")
		return nil, unavailableError(token, err)

	case !org.WebsiteEnabled:
		r.metrics.RecordResolution(ctx, string(KindDisabled), elapsed)
		log.Info().Str("org_id", org.OrgID.String()).Msg("organization website disabled")
		return nil, disabledError(token, org.Name)
	}

	r.metrics.RecordResolution(ctx, "ok", elapsed)

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("subdomain", org.SubdomainOrEmpty()).
		Int("attempts", attempt).
		Msg("resolved organization")

	return &Resolution{
		OrgID:     org.OrgID,
		Name:      org.Name,
		Subdomain: org.SubdomainOrEmpty(),
	}, nil
}

// lookup runs one pass: organization ID, or pure label, full token and
// custom domain in that order. The first hit wins.
func (r *Resolver) lookup(ctx context.Context, token, host string) (*models.Organization, error) {
	if id, ok := parseOrganizationID(token); ok {
		return r.orgs.Get(ctx, id)
	}

	pure, _, _ := strings.Cut(token, ".")

	org, err := r.orgs.GetBySubdomain(ctx, pure)
	if !errors.Is(err, store.ErrOrganizationNotFound) {
		return org, err
	}

	if token != pure {
		org, err = r.orgs.GetBySubdomain(ctx, token)
		if !errors.Is(err, store.ErrOrganizationNotFound) {
			return org, err
		}
	}

	if host == "" {
		return nil, fmt.Errorf("%w: %s", store.ErrOrganizationNotFound, token)
	}

	return r.orgs.GetByCustomDomain(ctx, host)
}

// parseOrganizationID reports whether token has the canonical UUID shape
// (8-4-4-4-12 hex). Other encodings uuid.Parse accepts are not IDs here.
func parseOrganizationID(token string) (uuid.UUID, bool) {
	if len(token) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(token)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

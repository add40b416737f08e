package tenant

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/hostname"
)

var (
	// ErrInitInFlight is returned when initialization is already running.
	ErrInitInFlight = errors.New("tenant context initialization already in progress")

	// ErrInvalidOrganization is returned by SwitchOrganization for an empty ID or name.
	ErrInvalidOrganization = errors.New("organization id and name are required")
)

// OrganizationResolver resolves a subdomain token, organization ID or custom
// domain to an organization.
type OrganizationResolver interface {
	Resolve(ctx context.Context, token, host string) (*Resolution, error)
}

// State is an immutable snapshot of a tenant Context.
type State struct {
	Host            string
	OrgID           uuid.UUID
	OrgName         string
	Subdomain       string
	SubdomainAccess bool
	Ready           bool
	Err             *ResolutionError
	RetryCount      int

	// Preview is set for "id-preview--<id>" hosts, PreviewID holds <id>.
	Preview   bool
	PreviewID string
}

// HasOrganization reports whether an organization identity has been set.
func (s State) HasOrganization() bool {
	return s.OrgID != uuid.Nil
}

// OrgAwarePath rewrites legacy organization paths to their canonical
// subdomain-relative form. See RewriteOrgPath.
func (s State) OrgAwarePath(path string) string {
	return RewriteOrgPath(path, s.SubdomainAccess, s.OrgID)
}

// Context is the tenant state for one page load. It is the only writer of
// that state; consumers read snapshots through State.
type Context struct {
	classifier *hostname.Classifier
	resolver   OrganizationResolver

	mu          sync.Mutex
	state       State
	orgSet      bool // first writer of (id, name) wins while set
	initialized bool
	inFlight    bool
}

// NewContext creates an empty, not ready Context for requests arriving on host.
func NewContext(host string, classifier *hostname.Classifier, resolver OrganizationResolver) *Context {
	return &Context{
		classifier: classifier,
		resolver:   resolver,
		state: State{
			Host: classifier.Normalize(host),
		},
	}
}

// State returns a snapshot of the current tenant state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Set records the organization identity. Once a non-empty (id, name) has been
// recorded, later non-empty values are ignored; empty values never change the
// identity. Every call marks the context ready and clears any error.
func (c *Context) Set(id uuid.UUID, name string, subdomainAccess bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(id, name, subdomainAccess)
}

func (c *Context) setLocked(id uuid.UUID, name string, subdomainAccess bool) {
	if id != uuid.Nil && name != "" {
		if c.orgSet {
			if id != c.state.OrgID {
				log.Debug().
					Str("org_id", c.state.OrgID.String()).
					Str("ignored_org_id", id.String()).
					Msg("tenant context already set, ignoring")
			}
		} else {
			c.state.OrgID = id
			c.state.OrgName = name
			c.state.SubdomainAccess = subdomainAccess
			c.orgSet = true
		}
	}

	c.state.Ready = true
	c.state.Err = nil
}

// SwitchOrganization replaces the organization identity regardless of what was
// set before. It is the explicit path for organization switchers.
func (c *Context) SwitchOrganization(id uuid.UUID, name string) error {
	if id == uuid.Nil || name == "" {
		return ErrInvalidOrganization
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log.Debug().
		Str("from_org_id", c.state.OrgID.String()).
		Str("org_id", id.String()).
		Msg("switching organization")

	c.state.OrgID = id
	c.state.OrgName = name
	c.state.Ready = true
	c.state.Err = nil
	c.orgSet = true

	return nil
}

// OrgAwarePath rewrites legacy organization paths under subdomain access.
func (c *Context) OrgAwarePath(path string) string {
	return c.State().OrgAwarePath(path)
}

// Initialize classifies the host and, for tenant hosts, resolves the
// organization. Resolution failures are recorded in the state rather than
// returned. Only ErrInitInFlight is returned, when another initialization is
// running; an initialized context is left unchanged.
func (c *Context) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrInitInFlight
	}
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()

	c.run(ctx)
	return nil
}

// Retry clears readiness, error and initialization, increments the retry
// counter and initializes again.
func (c *Context) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrInitInFlight
	}
	c.state.Ready = false
	c.state.Err = nil
	c.state.RetryCount++
	c.initialized = false
	c.orgSet = false
	c.inFlight = true
	retries := c.state.RetryCount
	c.mu.Unlock()

	log.Info().Str("host", c.state.Host).Int("retry", retries).Msg("retrying tenant context")

	c.run(ctx)
	return nil
}

// run performs initialization; the caller has claimed inFlight.
func (c *Context) run(ctx context.Context) {
	host := c.state.Host

	token, needsResolve := c.classify(host)

	var (
		res *Resolution
		err error
	)
	if needsResolve {
		res, err = c.resolver.Resolve(ctx, token, host)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
	c.initialized = true

	if !needsResolve {
		return
	}

	c.state.Subdomain = token

	if err != nil {
		var re *ResolutionError
		if !errors.As(err, &re) {
			re = unavailableError(token, err)
		}
		c.state.Ready = false
		c.state.Err = re
		return
	}

	if res.Subdomain != "" {
		c.state.Subdomain = res.Subdomain
	}
	c.setLocked(res.OrgID, res.Name, true)
}

// classify decides what initialization does for host. It returns the token
// to resolve, or marks the context ready directly and returns false.
func (c *Context) classify(host string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.classifier.IsPreview(host) {
		id, _ := c.classifier.ExtractSubdomain(host)
		c.state.Preview = true
		c.state.PreviewID = id
		c.setLocked(uuid.Nil, "", false)
		return "", false
	}

	if c.classifier.IsMainDomain(host) {
		c.setLocked(uuid.Nil, "", false)
		return "", false
	}

	if c.classifier.IsUnderApex(host) {
		if sub, ok := c.classifier.ExtractSubdomain(host); ok {
			return sub, true
		}
	} else if c.classifier.IsValid(host) && strings.Contains(host, ".") {
		// custom domains resolve on the full host
		return host, true
	}

	c.state.Err = notFoundError(host)
	return "", false
}

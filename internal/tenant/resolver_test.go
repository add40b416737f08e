package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/store/memory"
)

var errConnReset = errors.New("read: connection reset by peer")

// flakyStore fails the first `failures` subdomain lookups with a transient error.
type flakyStore struct {
	store.OrganizationStore

	failures       int32
	subdomainCalls atomic.Int32
	domainCalls    atomic.Int32
	release        chan struct{}
}

func (f *flakyStore) GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error) {
	n := f.subdomainCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if n <= f.failures {
		return nil, errConnReset
	}
	return f.OrganizationStore.GetBySubdomain(ctx, subdomain)
}

func (f *flakyStore) GetByCustomDomain(ctx context.Context, domain string) (*models.Organization, error) {
	f.domainCalls.Add(1)
	return f.OrganizationStore.GetByCustomDomain(ctx, domain)
}

func strPtr(s string) *string { return &s }

func newTestOrgs(t *testing.T) (*memory.OrganizationStore, map[string]*models.Organization) {
	t.Helper()

	orgs := memory.NewOrganizationStore()
	now := time.Now()

	fixtures := map[string]*models.Organization{
		"grace": {
			OrgID:          uuid.Must(uuid.NewV7()),
			Name:           "Grace Church",
			Subdomain:      strPtr("grace"),
			CustomDomain:   strPtr("gracechurch.org"),
			WebsiteEnabled: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		"hope": {
			OrgID:          uuid.Must(uuid.NewV7()),
			Name:           "Hope Chapel",
			Subdomain:      strPtr("hope"),
			WebsiteEnabled: false,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		"dotted": {
			OrgID:          uuid.Must(uuid.NewV7()),
			Name:           "St. Mark's",
			Subdomain:      strPtr("st.marks"),
			WebsiteEnabled: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}

	for _, org := range fixtures {
		require.NoError(t, orgs.Create(context.Background(), org))
	}

	return orgs, fixtures
}

func fastConfig() ResolverConfig {
	return ResolverConfig{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}
}

func TestResolver_Resolve(t *testing.T) {
	orgs, fixtures := newTestOrgs(t)
	r := NewResolver(orgs, fastConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		token    string
		host     string
		expected *models.Organization
		kind     Kind
	}{
		{name: "subdomain", token: "grace", host: "grace.steeple.app", expected: fixtures["grace"]},
		{name: "subdomain is case insensitive", token: "GRACE", host: "GRACE.steeple.app", expected: fixtures["grace"]},
		{name: "organization id", token: fixtures["grace"].OrgID.String(), host: "steeple.app", expected: fixtures["grace"]},
		{name: "pure label wins", token: "grace.example", host: "grace.example", expected: fixtures["grace"]},
		{name: "full token", token: "st.marks", host: "st.marks.steeple.app", expected: fixtures["dotted"]},
		{name: "custom domain", token: "gracechurch.org", host: "gracechurch.org", expected: fixtures["grace"]},
		{name: "unknown subdomain", token: "nowhere", host: "nowhere.steeple.app", kind: KindNotFound},
		{name: "unknown organization id", token: uuid.NewString(), host: "steeple.app", kind: KindNotFound},
		{name: "empty token", token: "", host: "steeple.app", kind: KindNotFound},
		{name: "website disabled", token: "hope", host: "hope.steeple.app", kind: KindDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(ctx, tt.token, tt.host)
			if tt.kind != "" {
				require.Error(t, err)
				require.Nil(t, res)
				require.Equal(t, tt.kind, KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected.OrgID, res.OrgID)
			require.Equal(t, tt.expected.Name, res.Name)
			require.Equal(t, tt.expected.SubdomainOrEmpty(), res.Subdomain)
		})
	}
}

func TestResolver_ErrorMessages(t *testing.T) {
	orgs, _ := newTestOrgs(t)
	r := NewResolver(orgs, fastConfig())

	_, err := r.Resolve(context.Background(), "nowhere", "nowhere.steeple.app")
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "nowhere", re.Token)
	require.Contains(t, re.Message, "nowhere")

	_, err = r.Resolve(context.Background(), "hope", "hope.steeple.app")
	require.ErrorAs(t, err, &re)
	require.Contains(t, re.Message, "Hope Chapel")
}

func TestResolver_RetriesTransientErrors(t *testing.T) {
	orgs, fixtures := newTestOrgs(t)
	flaky := &flakyStore{OrganizationStore: orgs, failures: 2}
	cfg := ResolverConfig{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}
	r := NewResolver(flaky, cfg)

	var waits []time.Duration
	r.onRetry = func(wait time.Duration) { waits = append(waits, wait) }

	start := time.Now()
	res, err := r.Resolve(context.Background(), "grace", "grace.steeple.app")
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, fixtures["grace"].OrgID, res.OrgID)
	require.Equal(t, int32(3), flaky.subdomainCalls.Load())
	require.Equal(t, []time.Duration{cfg.BaseDelay, 2 * cfg.BaseDelay}, waits)
	require.GreaterOrEqual(t, elapsed, 3*cfg.BaseDelay)
	require.Less(t, elapsed, 3*cfg.BaseDelay+time.Second)
}

func TestResolver_SharedLookupSurvivesCallerCancel(t *testing.T) {
	orgs, fixtures := newTestOrgs(t)
	flaky := &flakyStore{OrganizationStore: orgs, failures: 1}
	r := NewResolver(flaky, ResolverConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond})

	retrying := make(chan struct{})
	r.onRetry = func(time.Duration) { close(retrying) }

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(first, "grace", "grace.steeple.app")
		firstErr <- err
	}()

	// the first attempt has failed and the lookup is waiting to retry
	<-retrying

	type result struct {
		res *Resolution
		err error
	}
	second := make(chan result, 1)
	go func() {
		res, err := r.Resolve(context.Background(), "grace", "grace.steeple.app")
		second <- result{res, err}
	}()

	// well inside the 100ms retry wait, so the second caller joins the same lookup
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	err := <-firstErr
	require.Equal(t, KindUnavailable, KindOf(err))
	require.ErrorIs(t, err, context.Canceled)

	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, fixtures["grace"].OrgID, got.res.OrgID)
	require.Equal(t, int32(2), flaky.subdomainCalls.Load())
}

func TestResolver_UnavailableAfterMaxAttempts(t *testing.T) {
	orgs, _ := newTestOrgs(t)
	flaky := &flakyStore{OrganizationStore: orgs, failures: 10}
	r := NewResolver(flaky, fastConfig())

	_, err := r.Resolve(context.Background(), "grace", "grace.steeple.app")
	require.Equal(t, KindUnavailable, KindOf(err))
	require.ErrorIs(t, err, errConnReset)
	require.Equal(t, int32(3), flaky.subdomainCalls.Load())
	require.Zero(t, flaky.domainCalls.Load())
}

func TestResolver_NotFoundIsNotRetried(t *testing.T) {
	orgs, _ := newTestOrgs(t)
	flaky := &flakyStore{OrganizationStore: orgs}
	r := NewResolver(flaky, fastConfig())

	_, err := r.Resolve(context.Background(), "nowhere", "nowhere.steeple.app")
	require.Equal(t, KindNotFound, KindOf(err))
	require.Equal(t, int32(1), flaky.subdomainCalls.Load())
	require.Equal(t, int32(1), flaky.domainCalls.Load())
}

func TestResolver_CollapsesConcurrentLookups(t *testing.T) {
	orgs, fixtures := newTestOrgs(t)
	flaky := &flakyStore{OrganizationStore: orgs, release: make(chan struct{})}
	r := NewResolver(flaky, fastConfig())

	var wg sync.WaitGroup
	results := make([]*Resolution, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), "grace", "grace.steeple.app")
			require.NoError(t, err)
			results[i] = res
		}()
	}

	require.Eventually(t, func() bool { return flaky.subdomainCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(flaky.release)
	wg.Wait()

	require.Equal(t, int32(1), flaky.subdomainCalls.Load())
	for _, res := range results {
		require.Equal(t, fixtures["grace"].OrgID, res.OrgID)
	}
}

func TestParseOrganizationID(t *testing.T) {
	id := uuid.New()

	got, ok := parseOrganizationID(id.String())
	require.True(t, ok)
	require.Equal(t, id, got)

	for _, token := range []string{"grace", "", "urn:uuid:" + id.String(), "{" + id.String() + "}", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		_, ok := parseOrganizationID(token)
		require.False(t, ok, token)
	}
}

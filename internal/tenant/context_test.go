package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/hostname"
)

type stubResolver struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	resolve func(token, host string) (*Resolution, error)

	mu     sync.Mutex
	tokens []string
}

func (s *stubResolver) Resolve(ctx context.Context, token, host string) (*Resolution, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()

	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	return s.resolve(token, host)
}

func resolveTo(id uuid.UUID, name string) func(string, string) (*Resolution, error) {
	return func(token, _ string) (*Resolution, error) {
		return &Resolution{OrgID: id, Name: name, Subdomain: token}, nil
	}
}

func TestContext_Initialize(t *testing.T) {
	orgID := uuid.Must(uuid.NewV7())

	tests := []struct {
		name            string
		host            string
		resolve         func(string, string) (*Resolution, error)
		wantCalls       int32
		wantToken       string
		wantReady       bool
		wantOrg         bool
		wantSubdomain   string
		wantErrKind     Kind
		wantPreviewID   string
		wantSubdomainOn bool
	}{
		{name: "apex", host: "steeple.app", wantReady: true},
		{name: "alias with port", host: "www.steeple.app:443", wantReady: true},
		{name: "localhost", host: "localhost:3000", wantReady: true},
		{name: "preview host", host: "id-preview--abc123.steeple.app", wantReady: true, wantPreviewID: "abc123"},
		{
			name: "tenant subdomain", host: "grace.steeple.app", resolve: resolveTo(orgID, "Grace Church"),
			wantCalls: 1, wantToken: "grace", wantReady: true, wantOrg: true, wantSubdomain: "grace", wantSubdomainOn: true,
		},
		{
			name: "custom domain", host: "GraceChurch.org", resolve: resolveTo(orgID, "Grace Church"),
			wantCalls: 1, wantToken: "gracechurch.org", wantReady: true, wantOrg: true, wantSubdomain: "gracechurch.org", wantSubdomainOn: true,
		},
		{
			name: "not found", host: "nowhere.steeple.app",
			resolve:   func(token, _ string) (*Resolution, error) { return nil, notFoundError(token) },
			wantCalls: 1, wantToken: "nowhere", wantSubdomain: "nowhere", wantErrKind: KindNotFound,
		},
		{
			name: "plain error becomes unavailable", host: "grace.steeple.app",
			resolve:   func(string, string) (*Resolution, error) { return nil, errors.New("boom") },
			wantCalls: 1, wantToken: "grace", wantSubdomain: "grace", wantErrKind: KindUnavailable,
		},
		{name: "malformed host", host: "grace..steeple.app", wantErrKind: KindNotFound},
		{name: "single label host", host: "intranet", wantErrKind: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubResolver{resolve: tt.resolve}
			tc := NewContext(tt.host, hostname.Default(), stub)

			require.NoError(t, tc.Initialize(context.Background()))

			state := tc.State()
			require.Equal(t, tt.wantCalls, stub.calls.Load())
			if tt.wantToken != "" {
				require.Equal(t, []string{tt.wantToken}, stub.tokens)
			}
			require.Equal(t, tt.wantReady, state.Ready)
			require.Equal(t, tt.wantOrg, state.HasOrganization())
			require.Equal(t, tt.wantSubdomain, state.Subdomain)
			require.Equal(t, tt.wantSubdomainOn, state.SubdomainAccess)
			require.Equal(t, tt.wantPreviewID != "", state.Preview)
			require.Equal(t, tt.wantPreviewID, state.PreviewID)

			if tt.wantErrKind == "" {
				require.Nil(t, state.Err)
			} else {
				require.NotNil(t, state.Err)
				require.Equal(t, tt.wantErrKind, state.Err.Kind)
			}
		})
	}
}

func TestContext_InitializeRunsOnce(t *testing.T) {
	stub := &stubResolver{resolve: resolveTo(uuid.Must(uuid.NewV7()), "Grace Church")}
	tc := NewContext("grace.steeple.app", hostname.Default(), stub)

	require.NoError(t, tc.Initialize(context.Background()))
	require.NoError(t, tc.Initialize(context.Background()))
	require.Equal(t, int32(1), stub.calls.Load())
}

func TestContext_InitializeInFlightGuard(t *testing.T) {
	stub := &stubResolver{
		started: make(chan struct{}),
		release: make(chan struct{}),
		resolve: resolveTo(uuid.Must(uuid.NewV7()), "Grace Church"),
	}
	tc := NewContext("grace.steeple.app", hostname.Default(), stub)

	done := make(chan error)
	go func() {
		done <- tc.Initialize(context.Background())
	}()

	<-stub.started
	require.ErrorIs(t, tc.Initialize(context.Background()), ErrInitInFlight)
	require.ErrorIs(t, tc.Retry(context.Background()), ErrInitInFlight)
	require.False(t, tc.State().Ready)

	close(stub.release)
	require.NoError(t, <-done)
	require.True(t, tc.State().Ready)
	require.Equal(t, int32(1), stub.calls.Load())
}

func TestContext_SetFirstWriterWins(t *testing.T) {
	tc := NewContext("grace.steeple.app", hostname.Default(), &stubResolver{})

	first, second := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

	tc.Set(first, "Grace Church", true)
	state := tc.State()
	require.True(t, state.Ready)
	require.Equal(t, first, state.OrgID)

	// same values again leave identity unchanged and still mark ready
	tc.Set(first, "Grace Church", true)
	require.Equal(t, state.OrgID, tc.State().OrgID)
	require.Equal(t, state.OrgName, tc.State().OrgName)
	require.True(t, tc.State().Ready)

	// different values are ignored
	tc.Set(second, "Hope Chapel", false)
	state = tc.State()
	require.Equal(t, first, state.OrgID)
	require.Equal(t, "Grace Church", state.OrgName)
	require.True(t, state.SubdomainAccess)

	// empty values are accepted as no-ops
	tc.Set(uuid.Nil, "", false)
	require.Equal(t, first, tc.State().OrgID)
	require.True(t, tc.State().Ready)
}

func TestContext_SetClearsError(t *testing.T) {
	stub := &stubResolver{resolve: func(token, _ string) (*Resolution, error) { return nil, notFoundError(token) }}
	tc := NewContext("nowhere.steeple.app", hostname.Default(), stub)
	require.NoError(t, tc.Initialize(context.Background()))
	require.NotNil(t, tc.State().Err)

	tc.Set(uuid.Nil, "", false)
	require.Nil(t, tc.State().Err)
	require.True(t, tc.State().Ready)
}

func TestContext_SwitchOrganization(t *testing.T) {
	tc := NewContext("steeple.app", hostname.Default(), &stubResolver{})

	first, second := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
	tc.Set(first, "Grace Church", false)

	require.NoError(t, tc.SwitchOrganization(second, "Hope Chapel"))
	state := tc.State()
	require.Equal(t, second, state.OrgID)
	require.Equal(t, "Hope Chapel", state.OrgName)
	require.True(t, state.Ready)

	// Set still honours the guard after a switch
	tc.Set(first, "Grace Church", false)
	require.Equal(t, second, tc.State().OrgID)

	require.ErrorIs(t, tc.SwitchOrganization(uuid.Nil, "x"), ErrInvalidOrganization)
	require.ErrorIs(t, tc.SwitchOrganization(first, ""), ErrInvalidOrganization)
}

func TestContext_Retry(t *testing.T) {
	orgID := uuid.Must(uuid.NewV7())

	var attempts atomic.Int32
	stub := &stubResolver{resolve: func(token, _ string) (*Resolution, error) {
		if attempts.Add(1) == 1 {
			return nil, unavailableError(token, errors.New("timeout"))
		}
		return &Resolution{OrgID: orgID, Name: "Grace Church", Subdomain: token}, nil
	}}
	tc := NewContext("grace.steeple.app", hostname.Default(), stub)

	require.NoError(t, tc.Initialize(context.Background()))
	state := tc.State()
	require.False(t, state.Ready)
	require.Equal(t, KindUnavailable, state.Err.Kind)
	require.Zero(t, state.RetryCount)

	require.NoError(t, tc.Retry(context.Background()))
	state = tc.State()
	require.True(t, state.Ready)
	require.Nil(t, state.Err)
	require.Equal(t, orgID, state.OrgID)
	require.Equal(t, 1, state.RetryCount)
	require.Equal(t, int32(2), stub.calls.Load())
}

func TestContext_StateIsSnapshot(t *testing.T) {
	tc := NewContext("steeple.app", hostname.Default(), &stubResolver{})
	before := tc.State()

	tc.Set(uuid.Must(uuid.NewV7()), "Grace Church", false)
	require.False(t, before.Ready)
	require.False(t, before.HasOrganization())
}

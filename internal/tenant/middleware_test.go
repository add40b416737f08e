package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/hostname"
)

func TestMiddleware(t *testing.T) {
	orgs, fixtures := newTestOrgs(t)
	resolver := NewResolver(orgs, fastConfig())
	grace := fixtures["grace"]

	var got State
	handler := Middleware(hostname.Default(), resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := FromContext(r.Context())
		require.NotNil(t, tc)
		got = tc.State()
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("tenant host resolves organization", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://grace.steeple.app/dashboard", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, got.Ready)
		require.Equal(t, grace.OrgID, got.OrgID)
		require.True(t, got.SubdomainAccess)
	})

	t.Run("main domain is ready without organization", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://steeple.app/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, got.Ready)
		require.False(t, got.HasOrganization())
	})

	t.Run("disabled website is recorded in state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://hope.steeple.app/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.Err)
		require.Equal(t, KindDisabled, got.Err.Kind)
	})

	t.Run("retry parameter increments retry count", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://grace.steeple.app/?retry=1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, got.RetryCount)
		require.True(t, got.Ready)
	})

	t.Run("legacy path is redirected on tenant host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://grace.steeple.app/tenant-dashboard/"+grace.OrgID.String()+"/events?page=2", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPermanentRedirect, rec.Code)
		require.Equal(t, "/dashboard/events?page=2", rec.Header().Get("Location"))
	})

	t.Run("legacy path is not redirected on main domain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://steeple.app/tenant-dashboard/"+grace.OrgID.String(), nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})
}

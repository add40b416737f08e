package tenant

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/hostname"
)

type contextKey int

const tenantContextKey contextKey = iota

// WithContext returns a copy of ctx carrying tc.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromContext returns the tenant Context stored by Middleware, or nil.
func FromContext(ctx context.Context) *Context {
	tc, _ := ctx.Value(tenantContextKey).(*Context)
	return tc
}

// Middleware creates a tenant Context for every request, initializes it (or
// retries when the request carries retry=1) and redirects legacy
// organization paths to their canonical form on tenant hosts.
func Middleware(classifier *hostname.Classifier, resolver OrganizationResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := NewContext(r.Host, classifier, resolver)

			var err error
			if r.URL.Query().Get("retry") == "1" {
				err = tc.Retry(r.Context())
			} else {
				err = tc.Initialize(r.Context())
			}
			if err != nil {
				log.Error().Err(err).Str("host", r.Host).Msg("tenant context initialization failed")
				http.Error(w, "tenant context unavailable", http.StatusServiceUnavailable)
				return
			}

			state := tc.State()
			if state.Err != nil {
				log.Debug().
					Str("host", state.Host).
					Str("kind", string(state.Err.Kind)).
					Msg("tenant resolution failed")
			}

			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				if target := state.OrgAwarePath(r.URL.Path); target != r.URL.Path {
					if r.URL.RawQuery != "" {
						target += "?" + r.URL.RawQuery
					}
					http.Redirect(w, r, target, http.StatusPermanentRedirect)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
		})
	}
}

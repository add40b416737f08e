package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// OptionalDualAuthMiddleware attaches a principal from a bearer JWT (CLI) or,
// failing that, the session cookie (browser). Anonymous requests pass through
// without a principal; an invalid bearer token is rejected and never falls
// back to the session.
func OptionalDualAuthMiddleware(issuer *TokenIssuer, sessionProvider SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if _, ok := bearerToken(r); ok {
				principal, err := issuer.VerifyRequest(r)
				if err != nil {
					log.Debug().Err(err).Msg("Dual auth: JWT verification failed")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}

				log.Debug().
					Str("user_id", principal.UserID.String()).
					Str("type", principal.Type).
					Msg("Dual auth: JWT authenticated")

				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
				return
			}

			session, err := sessionProvider.GetSessionData(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			principal := &Principal{
				UserID: session.UserID,
				Email:  session.Email,
				Type:   PrincipalTypeUser,
			}

			log.Debug().
				Str("user_id", principal.UserID.String()).
				Msg("Dual auth: session authenticated")

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

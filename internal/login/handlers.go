package login

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/auth"
	httpmiddleware "github.com/wolfeidau/steeple/internal/http"
	"github.com/wolfeidau/steeple/internal/models"
)

const defaultLandingPath = "/dashboard"

// LoginURL builds the login page URL carrying the page to return to and an
// optional error code.
func LoginURL(loginPath, next, errorCode string) string {
	q := url.Values{}
	if next = SafeNext(next); next != "" {
		q.Set("next", next)
	}
	if errorCode != "" {
		q.Set("error_code", errorCode)
	}
	if len(q) == 0 {
		return loginPath
	}
	return loginPath + "?" + q.Encode()
}

// SafeNext returns next when it is a local absolute path, or "" otherwise.
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func clientMeta(r *http.Request) ClientMeta {
	ip := httpmiddleware.ClientIPFromContext(r.Context())
	if ip == "" {
		ip = httpmiddleware.ExtractClientIP(r)
	}
	return ClientMeta{UserAgent: r.UserAgent(), IPAddress: ip}
}

func landing(r *http.Request) string {
	if next := SafeNext(r.FormValue("next")); next != "" {
		return next
	}
	return defaultLandingPath
}

// SignUpHandler handles POST /auth/signup from the sign-up form.
func (s *Service) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := map[string]string{}
	for _, key := range []string{models.MetaIntent, models.MetaOrganizationName, models.MetaSubdomain, models.MetaOrganizationID} {
		if v := strings.TrimSpace(r.FormValue(key)); v != "" {
			metadata[key] = v
		}
	}

	user, session, err := s.SignUp(r.Context(), r.FormValue("email"), r.FormValue("password"), r.FormValue("name"), metadata, clientMeta(r))
	if err != nil {
		if errors.Is(err, ErrInvalidSignUp) {
			log.Debug().Err(err).Msg("Sign up rejected")
			http.Redirect(w, r, LoginURL(s.cfg.LoginPath, r.FormValue("next"), "signup_invalid"), http.StatusSeeOther)
			return
		}
		log.Error().Err(err).Msg("Sign up failed")
		http.Error(w, "Failed to sign up", http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, r, session.SessionID, session.ExpiresAt)

	log.Debug().Str("user_id", user.UserID.String()).Msg("Sign up complete")
	http.Redirect(w, r, landing(r), http.StatusSeeOther)
}

// SignInHandler handles POST /auth/signin from the login form.
func (s *Service) SignInHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, session, err := s.SignIn(r.Context(), r.FormValue("email"), r.FormValue("password"), clientMeta(r))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Redirect(w, r, LoginURL(s.cfg.LoginPath, r.FormValue("next"), "credentials"), http.StatusSeeOther)
			return
		}
		log.Error().Err(err).Msg("Sign in failed")
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, r, session.SessionID, session.ExpiresAt)
	http.Redirect(w, r, landing(r), http.StatusSeeOther)
}

// SignOutHandler handles POST /auth/signout. The cookie is always cleared.
func (s *Service) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sessionID, err := DecodeSessionID(cookie.Value); err == nil {
			if err := s.SignOut(r.Context(), sessionID); err != nil {
				log.Error().Err(err).Msg("Failed to delete session")
			}
		}
	}

	s.clearSessionCookie(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// TokenHandler exchanges credentials for a bearer token used by the CLI.
func (s *Service) TokenHandler(issuer *auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req TokenRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := s.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			log.Error().Err(err).Msg("Token authentication failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		token, expiresAt, err := issuer.Issue(user.UserID, user.Email)
		if err != nil {
			log.Error().Err(err).Msg("Failed to issue token")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(TokenResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			UserID:    user.UserID.String(),
		}); err != nil {
			log.Error().Err(err).Msg("Failed to write token response")
		}
	}
}

package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/steeple/internal/auth"
	"github.com/wolfeidau/steeple/internal/client"
	"github.com/wolfeidau/steeple/internal/logger"
	"github.com/wolfeidau/steeple/internal/login"
	"github.com/wolfeidau/steeple/internal/role"
	"github.com/wolfeidau/steeple/internal/routing"
	"github.com/wolfeidau/steeple/internal/server"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/telemetry"
	"github.com/wolfeidau/steeple/internal/tenant"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"STEEPLE_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"STEEPLE_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"STEEPLE_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://steeple.app" env:"STEEPLE_CORS_ORIGINS"`

	// Auth configuration
	TokenSecret     string        `help:"HMAC secret for API bearer tokens, at least 32 bytes" default:"" env:"STEEPLE_TOKEN_SECRET"`
	TokenTTL        time.Duration `help:"API bearer token TTL" default:"1h" env:"STEEPLE_TOKEN_TTL"`
	SessionTTL      time.Duration `help:"session TTL" default:"168h" env:"STEEPLE_SESSION_TTL"`
	SessionReap     time.Duration `help:"interval between expired session sweeps, 0 disables" default:"15m" env:"STEEPLE_SESSION_REAP_INTERVAL"`
	InsecureCookies bool          `help:"issue session cookies without the Secure attribute (plain-http development)" default:"false" env:"STEEPLE_INSECURE_COOKIES"`

	// Routing configuration
	MainURL            string        `help:"main site URL preview hosts are sent to, defaults to https://<apex>" default:"" env:"STEEPLE_MAIN_URL"`
	RoleTimeout        time.Duration `help:"bound on role classification before falling back to the landing view" default:"10s" env:"STEEPLE_ROLE_TIMEOUT"`
	ResolveAttempts    uint          `help:"organization lookup attempts" default:"3" env:"STEEPLE_RESOLVE_ATTEMPTS"`
	ResolveBaseDelay   time.Duration `help:"base delay between organization lookup attempts" default:"1s" env:"STEEPLE_RESOLVE_BASE_DELAY"`
	ResolveTimeout     time.Duration `help:"bound on one organization lookup including retries" default:"15s" env:"STEEPLE_RESOLVE_TIMEOUT"`
	ResolverURL        string        `help:"resolve tenants through the TenantService at this URL instead of the local store" default:"" env:"STEEPLE_RESOLVER_URL"`
	ResolverCacheDir   string        `help:"directory for cached remote resolutions, empty keeps them in memory" default:"" env:"STEEPLE_RESOLVER_CACHE_DIR"`
	TrustForwardedHost bool          `help:"use X-Forwarded-Host from a trusted proxy as the request host" default:"false" env:"STEEPLE_TRUST_FORWARDED_HOST"`

	// Operational modes
	Tracing     bool    `help:"enable tracing" default:"false" env:"STEEPLE_TRACING"`
	SampleRatio float64 `help:"trace sample ratio" default:"1" env:"STEEPLE_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"STEEPLE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Redis         RedisFlags         `embed:"" prefix:"redis-"`
	Domain        DomainFlags        `embed:"" prefix:"domain-"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	var interceptors []connect.Interceptor
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "steeple-server",
			Apex:        c.Domain.Apex,
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			return fmt.Errorf("failed to create OTEL interceptor: %w", err)
		}
		interceptors = append(interceptors, otelInterceptor)
	}

	classifier, err := c.Domain.Classifier()
	if err != nil {
		return err
	}

	st, err := openStores(ctx, log, c.StoreType, &c.PostgresStore, &c.Redis)
	if err != nil {
		return err
	}
	defer st.Close()

	tokenSecret, err := c.tokenSecret(log)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(tokenSecret, c.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	loginService, err := login.NewService(login.Stores{
		Users:         st.Users,
		Sessions:      st.Sessions,
		Organizations: st.Organizations,
		Memberships:   st.Memberships,
	}, login.Config{
		SessionTTL:      c.SessionTTL,
		CookieDomain:    classifier.Apex(),
		DevelopmentHost: classifier.IsDevelopmentEnvironment,
		InsecureCookies: c.InsecureCookies,
	})
	if err != nil {
		return fmt.Errorf("failed to create login service: %w", err)
	}

	resolver := c.organizationResolver(log, st.Organizations)
	roles := role.New(st.Users, st.Memberships)

	mainURL := c.MainURL
	if mainURL == "" {
		mainURL = "https://" + classifier.Apex()
	}
	router := routing.New(roles, mainURL)
	router.Timeout = c.RoleTimeout

	srv, err := server.NewServer(server.Deps{
		Classifier:    classifier,
		Resolver:      resolver,
		Router:        router,
		Organizations: st.Organizations,
		Access:        roles,
		Login:         loginService,
		Tokens:        tokens,
	})
	if err != nil {
		return err
	}

	if c.SessionReap > 0 {
		reapCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go reapSessions(reapCtx, log, st.Sessions, c.SessionReap)
	}

	handler := srv.Handler(log, server.Options{
		CORSOrigins:        c.CORSOrigins,
		Interceptors:       interceptors,
		TrustForwardedHost: c.TrustForwardedHost,
	})

	if err := c.validateTLS(); err != nil {
		return err
	}

	log.Info().
		Str("apex", classifier.Apex()).
		Str("store", c.StoreType).
		Bool("redis", c.Redis.Enabled()).
		Bool("remote_resolver", c.ResolverURL != "").
		Msg("Server configured")

	return listenAndServe(ctx, log, configureHTTPServer(c.Listen, handler), c.Cert, c.Key)
}

// organizationResolver resolves against the local store, or through another
// instance's TenantService when --resolver-url is set.
func (c *ServeCmd) organizationResolver(log zerolog.Logger, orgs store.OrganizationStore) tenant.OrganizationResolver {
	if c.ResolverURL != "" {
		log.Info().Str("url", c.ResolverURL).Msg("Resolving tenants remotely")
		clients := client.NewClients(client.Config{
			ServerURL: c.ResolverURL,
			Timeout:   c.ResolveTimeout,
			CacheDir:  c.ResolverCacheDir,
		})
		return client.NewRemoteResolver(clients.Tenant)
	}

	return tenant.NewResolver(orgs, tenant.ResolverConfig{
		MaxAttempts: c.ResolveAttempts,
		BaseDelay:   c.ResolveBaseDelay,
		Timeout:     c.ResolveTimeout,
	})
}

func (c *ServeCmd) tokenSecret(log zerolog.Logger) ([]byte, error) {
	if c.TokenSecret != "" {
		if len(c.TokenSecret) < 32 {
			return nil, errors.New("token secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
		}
		return []byte(c.TokenSecret), nil
	}

	log.Warn().Msg("No token secret configured (--token-secret or STEEPLE_TOKEN_SECRET), bearer tokens will not survive a restart")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	return secret, nil
}

func (c *ServeCmd) validateTLS() error {
	if c.Cert == "" && c.Key == "" {
		return nil
	}
	if c.Cert == "" || c.Key == "" {
		return errors.New("TLS needs both --cert and --key")
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}
	return nil
}

func reapSessions(ctx context.Context, log zerolog.Logger, sessions store.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to delete expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("count", n).Msg("Deleted expired sessions")
			}
		}
	}
}

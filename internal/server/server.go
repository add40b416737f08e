package server

import (
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/steeple/api/tenant/v1/tenantv1connect"
	"github.com/wolfeidau/steeple/internal/auth"
	"github.com/wolfeidau/steeple/internal/hostname"
	httpmiddleware "github.com/wolfeidau/steeple/internal/http"
	"github.com/wolfeidau/steeple/internal/logger"
	"github.com/wolfeidau/steeple/internal/login"
	"github.com/wolfeidau/steeple/internal/routing"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/tenant"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Classifier    *hostname.Classifier
	Resolver      tenant.OrganizationResolver
	Router        *routing.Router
	Organizations store.OrganizationStore
	Access        AccessChecker
	Login         *login.Service
	Tokens        *auth.TokenIssuer
}

func (d Deps) validate() error {
	if d.Classifier == nil || d.Resolver == nil || d.Router == nil || d.Organizations == nil ||
		d.Access == nil || d.Login == nil || d.Tokens == nil {
		return errors.New("all server dependencies are required")
	}
	return nil
}

// Options configures the HTTP handler.
type Options struct {
	CORSOrigins  []string
	Interceptors []connect.Interceptor

	// TrustForwardedHost takes the tenant host from X-Forwarded-Host.
	TrustForwardedHost bool
}

// Server wraps the HTML pages, auth endpoints and the TenantService RPC.
type Server struct {
	deps          Deps
	pages         *Pages
	tenantService *TenantServiceServer
}

// NewServer creates a new server from its dependencies.
func NewServer(deps Deps) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	pages, err := NewPages(deps.Classifier, deps.Router, deps.Organizations, deps.Access)
	if err != nil {
		return nil, err
	}

	return &Server{
		deps:          deps,
		pages:         pages,
		tenantService: NewTenantServiceServer(deps.Classifier, deps.Resolver, deps.Router),
	}, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// HTML pages resolve the tenant for the host and pick up an optional session
	tenantMiddleware := tenant.Middleware(s.deps.Classifier, s.deps.Resolver)
	page := func(h http.HandlerFunc) http.Handler {
		return gzhttp.GzipHandler(tenantMiddleware(s.deps.Login.OptionalAuth(h)))
	}

	// "/" has no method so it never conflicts with the RPC prefix pattern
	mux.Handle("/", page(s.pages.Home))
	mux.Handle("GET /dashboard", page(s.pages.Dashboard))
	mux.Handle("GET /dashboard/{organizationId}", page(s.pages.Dashboard))
	mux.Handle("GET /tenant-dashboard/{organizationId}", page(s.pages.Dashboard))
	mux.Handle("GET /login", page(s.pages.Login))

	// Auth endpoints
	mux.HandleFunc("POST /auth/signup", s.deps.Login.SignUpHandler)
	mux.HandleFunc("POST /auth/signin", s.deps.Login.SignInHandler)
	mux.HandleFunc("POST /auth/signout", s.deps.Login.SignOutHandler)
	mux.Handle("POST /auth/token", s.deps.Login.TokenHandler(s.deps.Tokens))

	// TenantService accepts a bearer JWT (CLI) or the session cookie (browser);
	// RouteDashboard rejects anonymous callers itself
	interceptors := append([]connect.Interceptor{logger.NewConnectRequests(log)}, opts.Interceptors...)
	rpcPath, rpcHandler := tenantv1connect.NewTenantServiceHandler(
		s.tenantService,
		connect.WithInterceptors(interceptors...),
	)
	mux.Handle(rpcPath, auth.OptionalDualAuthMiddleware(s.deps.Tokens, s.deps.Login)(rpcHandler))

	// CSRF protection for HTML pages and forms (not applied to API routes)
	protection := csrf.New()
	apiHandler := withCORS(opts.CORSOrigins, mux)
	htmlHandler := protection.Handler(mux)

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			apiHandler.ServeHTTP(w, r)
			return
		}
		htmlHandler.ServeHTTP(w, r)
	})

	handler = httpmiddleware.AccessLogMiddleware(log)(handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	if opts.TrustForwardedHost {
		handler = httpmiddleware.ForwardedHostMiddleware()(handler)
	}
	return handler
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/"+tenantv1connect.TenantServiceName+"/")
}

// withCORS adds CORS support to a Connect HTTP handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization"),
		ExposedHeaders:   append(connectcors.ExposedHeaders(), "Cache-Control"),
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}

package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/hostname"
	"github.com/wolfeidau/steeple/internal/login"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/routing"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/tenant"
)

//go:embed templates/*.html
var templateFS embed.FS

// AccessChecker decides whether a user may open an organization dashboard.
type AccessChecker interface {
	CanAccess(ctx context.Context, userID, orgID uuid.UUID) bool
	Organizations(ctx context.Context, userID uuid.UUID) []uuid.UUID
}

// Pages serves the HTML surface: the tenant site home, the dashboard entry
// point and the login page.
type Pages struct {
	classifier *hostname.Classifier
	router     *routing.Router
	orgs       store.OrganizationStore
	access     AccessChecker
	templates  map[string]*template.Template
}

type pageData struct {
	Tenant  tenant.State
	Session *login.SessionData

	Decision      routing.Decision
	Organization  *models.Organization
	Organizations []*models.Organization
	ContinueURL   string

	ErrorKind    string
	ErrorMessage string
	RetryURL     string

	Next      string
	ErrorCode string
}

// NewPages parses the embedded templates.
func NewPages(classifier *hostname.Classifier, router *routing.Router, orgs store.OrganizationStore, access AccessChecker) (*Pages, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Pages{
		classifier: classifier,
		router:     router,
		orgs:       orgs,
		access:     access,
		templates:  templates,
	}, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, name := range []string{"home.html", "dashboard.html", "error.html", "login.html"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}

// Home serves "/": the organization's site on tenant hosts and the platform
// landing page on the main domain.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := p.newPageData(r)
	if data.Tenant.Err != nil {
		p.renderResolutionError(w, r, data)
		return
	}
	p.render(w, r, http.StatusOK, "home.html", data)
}

// Dashboard serves "/dashboard" and "/dashboard/{organizationId}".
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := p.newPageData(r)

	var userID *uuid.UUID
	if data.Session != nil {
		userID = &data.Session.UserID
	}

	q := r.URL.Query()
	decision := p.router.Route(ctx, routing.Input{
		Tenant:     data.Tenant,
		UserID:     userID,
		OrgParam:   q.Get("org"),
		PathOrgID:  r.PathValue("organizationId"),
		AdminParam: isTrue(q.Get("admin")),
		Continue:   isTrue(q.Get("continue")),
		MainDomain: p.classifier.IsMainDomain(r.Host),
		Path:       r.URL.RequestURI(),
	})
	data.Decision = decision

	switch decision.View {
	case routing.ViewRedirect:
		http.Redirect(w, r, decision.RedirectURL, http.StatusFound)
		return
	case routing.ViewError:
		if data.Tenant.Err != nil {
			p.renderResolutionError(w, r, data)
			return
		}
		data.ErrorMessage = decision.Error.Error()
		p.render(w, r, http.StatusBadRequest, "error.html", data)
		return
	case routing.ViewAccessDenied:
		p.render(w, r, http.StatusForbidden, "dashboard.html", data)
		return
	case routing.ViewOrganizationDashboard:
		p.organizationDashboard(w, r, data)
		return
	case routing.ViewMainLanding:
		data.ContinueURL = continueURL(r.URL)
		if userID != nil && !decision.TimedOut {
			data.Organizations = p.organizations(ctx, *userID)
		}
	case "":
		// still checking_context; the middleware initializes synchronously so
		// this only happens when initialization could not run
		data.ErrorMessage = "tenant context is not ready"
		data.RetryURL = retryURL(r.URL)
		p.render(w, r, http.StatusServiceUnavailable, "error.html", data)
		return
	}

	p.render(w, r, http.StatusOK, "dashboard.html", data)
}

func (p *Pages) organizationDashboard(w http.ResponseWriter, r *http.Request, data pageData) {
	ctx := r.Context()
	orgID := data.Decision.OrganizationID

	org, err := p.orgs.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			data.ErrorKind = string(tenant.KindNotFound)
			data.ErrorMessage = "no organization found for " + orgID.String()
			p.render(w, r, http.StatusNotFound, "error.html", data)
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("org_id", orgID.String()).Msg("failed to load organization")
		data.ErrorMessage = "failed to load organization"
		data.RetryURL = retryURL(r.URL)
		p.render(w, r, http.StatusServiceUnavailable, "error.html", data)
		return
	}

	if !p.access.CanAccess(ctx, data.Session.UserID, orgID) {
		data.Decision.View = routing.ViewAccessDenied
		p.render(w, r, http.StatusForbidden, "dashboard.html", data)
		return
	}

	// an explicitly opened organization replaces whatever the host resolved to
	if tc := tenant.FromContext(ctx); tc != nil && tc.State().OrgID != org.OrgID {
		if err := tc.SwitchOrganization(org.OrgID, org.Name); err == nil {
			data.Tenant = tc.State()
		}
	}

	data.Organization = org
	p.render(w, r, http.StatusOK, "dashboard.html", data)
}

// Login serves the sign-in and sign-up forms.
func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	data := p.newPageData(r)
	data.Next = login.SafeNext(r.URL.Query().Get("next"))
	data.ErrorCode = r.URL.Query().Get("error_code")
	p.render(w, r, http.StatusOK, "login.html", data)
}

func (p *Pages) newPageData(r *http.Request) pageData {
	var data pageData
	if tc := tenant.FromContext(r.Context()); tc != nil {
		data.Tenant = tc.State()
	} else {
		data.Tenant = tenant.State{Host: p.classifier.Normalize(r.Host)}
	}
	if session, ok := login.SessionFromContext(r.Context()); ok {
		data.Session = session
	}
	return data
}

func (p *Pages) organizations(ctx context.Context, userID uuid.UUID) []*models.Organization {
	ids := p.access.Organizations(ctx, userID)
	if len(ids) == 0 {
		return nil
	}
	orgs, err := p.orgs.ListByIDs(ctx, ids)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to list organizations")
		return nil
	}
	return orgs
}

func (p *Pages) renderResolutionError(w http.ResponseWriter, r *http.Request, data pageData) {
	re := data.Tenant.Err
	data.ErrorKind = string(re.Kind)
	data.ErrorMessage = re.Message
	data.RetryURL = retryURL(r.URL)

	status := http.StatusServiceUnavailable
	switch re.Kind {
	case tenant.KindNotFound:
		status = http.StatusNotFound
	case tenant.KindDisabled:
		status = http.StatusForbidden
	}
	p.render(w, r, status, "error.html", data)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := p.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

func retryURL(u *url.URL) string {
	q := u.Query()
	q.Set("retry", "1")
	return u.Path + "?" + q.Encode()
}

func continueURL(u *url.URL) string {
	q := u.Query()
	q.Set("continue", "1")
	return u.Path + "?" + q.Encode()
}

func isTrue(v string) bool {
	return v == "1" || v == "true"
}

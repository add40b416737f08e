// Package tenantv1 holds the messages exchanged with steeple.tenant.v1.TenantService.
// Messages are plain structs carried by JSONCodec.
package tenantv1

// ErrorKindHeader carries the tenant resolution failure kind on error responses.
const ErrorKindHeader = "Steeple-Error-Kind"

// Host classifications returned by ResolveTenant.
const (
	HostKindMainDomain = "main_domain"
	HostKindPreview    = "preview"
	HostKindTenant     = "tenant"
)

type ResolveTenantRequest struct {
	// Host is the request host, port allowed.
	Host string `json:"host"`
	// Token resolves a subdomain, organization ID or custom domain directly,
	// skipping host classification.
	Token string `json:"token,omitempty"`
}

type ResolveTenantResponse struct {
	Host             string `json:"host"`
	HostKind         string `json:"hostKind"`
	OrganizationID   string `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
	Subdomain        string `json:"subdomain,omitempty"`
	SubdomainAccess  bool   `json:"subdomainAccess,omitempty"`
	PreviewID        string `json:"previewId,omitempty"`
	Development      bool   `json:"development,omitempty"`
}

type RouteDashboardRequest struct {
	Host string `json:"host"`
	// Path is the page being opened, used as the post-login destination.
	Path     string `json:"path,omitempty"`
	Org      string `json:"org,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	Continue bool   `json:"continue,omitempty"`
}

type RouteDashboardResponse struct {
	View            string `json:"view"`
	Phase           string `json:"phase"`
	OrganizationID  string `json:"organizationId,omitempty"`
	RedirectURL     string `json:"redirectUrl,omitempty"`
	Role            string `json:"role,omitempty"`
	TimedOut        bool   `json:"timedOut,omitempty"`
	ContinueOffered bool   `json:"continueOffered,omitempty"`
	AdminOverride   bool   `json:"adminOverride,omitempty"`
	Error           *Error `json:"error,omitempty"`
}

// Error describes why the error view was selected.
type Error struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

package tenant

import (
	"strings"

	"github.com/google/uuid"
)

const (
	legacyDashboardPrefix = "/tenant-dashboard/"
	dashboardPath         = "/dashboard"
)

// RewriteOrgPath maps organization-scoped paths to the canonical
// subdomain-relative dashboard path when the request arrived on a tenant host:
//
//	/tenant-dashboard/<id>[/rest] -> /dashboard[/rest]
//	/dashboard/<orgID>[/rest]     -> /dashboard[/rest]
//
// Any query string is preserved. Other paths, and every path without
// subdomain access, are returned unchanged.
func RewriteOrgPath(path string, subdomainAccess bool, orgID uuid.UUID) string {
	if !subdomainAccess {
		return path
	}

	p, query, hasQuery := strings.Cut(path, "?")

	var rest string
	switch {
	case strings.HasPrefix(p, legacyDashboardPrefix):
		id, tail, _ := strings.Cut(strings.TrimPrefix(p, legacyDashboardPrefix), "/")
		if id == "" {
			return path
		}
		rest = tail

	case orgID != uuid.Nil && strings.HasPrefix(p, dashboardPath+"/"):
		id, tail, _ := strings.Cut(strings.TrimPrefix(p, dashboardPath+"/"), "/")
		if !strings.EqualFold(id, orgID.String()) {
			return path
		}
		rest = tail

	default:
		return path
	}

	out := dashboardPath
	if rest != "" {
		out += "/" + rest
	}
	if hasQuery {
		out += "?" + query
	}
	return out
}

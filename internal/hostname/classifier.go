// Package hostname classifies request hostnames as main domain, development or
// tenant candidates. Every function is total: malformed input yields "" or false.
package hostname

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
)

// PreviewPrefix is the leftmost-label convention for preview deployments,
// "id-preview--<id>.<apex>".
const PreviewPrefix = "id-preview--"

// Classifier inspects hostnames against a domain Config.
type Classifier struct {
	cfg        Config
	apexLabels int
}

// New creates a Classifier, applying defaults and validating cfg.
func New(cfg Config) (*Classifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain config: %w", err)
	}
	return &Classifier{
		cfg:        cfg,
		apexLabels: strings.Count(cfg.Apex, ".") + 1,
	}, nil
}

// Default returns a Classifier for the default steeple.app deployment.
func Default() *Classifier {
	c, err := New(Config{})
	if err != nil {
		panic(err) // defaults are always valid
	}
	return c
}

// Apex returns the canonical apex domain.
func (c *Classifier) Apex() string {
	return c.cfg.Apex
}

// Normalize lowercases host and strips any port, IPv6 brackets and trailing dot.
func (c *Classifier) Normalize(host string) string {
	name, _ := splitHostPort(host)
	return name
}

// IsValid reports whether host is a well-formed DNS name once normalized.
func (c *Classifier) IsValid(host string) bool {
	return validHostname(c.Normalize(host))
}

// IsMainDomain reports whether host serves the main application: the apex, an
// alias, a development host or a preview deployment.
func (c *Classifier) IsMainDomain(host string) bool {
	name := c.Normalize(host)
	if name == "" {
		return false
	}
	return name == c.cfg.Apex ||
		slices.Contains(c.cfg.Aliases, name) ||
		c.isDevHost(name) ||
		c.hasPreviewSuffix(name)
}

// ExtractSubdomain returns the leftmost label of host when it has more labels
// than the apex. A preview label "id-preview--<id>" yields <id> unchanged so
// callers can redirect instead of resolving it as a tenant.
func (c *Classifier) ExtractSubdomain(host string) (string, bool) {
	name := c.Normalize(host)
	if !validHostname(name) || c.isDevHost(name) {
		return "", false
	}
	if name == c.cfg.Apex || slices.Contains(c.cfg.Aliases, name) {
		return "", false
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", false
	}

	if id, ok := previewID(labels[0]); ok {
		return id, true
	}

	if c.hasPreviewSuffix(name) || len(labels) <= c.apexLabels {
		return "", false
	}

	return labels[0], true
}

// IsPreview reports whether the leftmost label uses the preview convention.
func (c *Classifier) IsPreview(host string) bool {
	name := c.Normalize(host)
	if !validHostname(name) {
		return false
	}
	label, _, _ := strings.Cut(name, ".")
	_, ok := previewID(label)
	return ok
}

// IsDevelopmentEnvironment reports whether host is a local development host
// or carries a port from the development range.
func (c *Classifier) IsDevelopmentEnvironment(host string) bool {
	name, port := splitHostPort(host)
	if name != "" && c.isDevHost(name) {
		return true
	}
	for _, r := range c.cfg.DevPorts {
		if port != 0 && r.Contains(port) {
			return true
		}
	}
	return false
}

// IsUnderApex reports whether host is the apex or one of its subdomains.
func (c *Classifier) IsUnderApex(host string) bool {
	name := c.Normalize(host)
	return name == c.cfg.Apex || strings.HasSuffix(name, "."+c.cfg.Apex)
}

func (c *Classifier) isDevHost(name string) bool {
	if slices.Contains(c.cfg.DevHosts, name) || strings.HasSuffix(name, ".localhost") {
		return true
	}
	if addr, err := netip.ParseAddr(name); err == nil {
		return addr.IsLoopback() || addr.IsUnspecified()
	}
	return false
}

func (c *Classifier) hasPreviewSuffix(name string) bool {
	for _, s := range c.cfg.PreviewSuffixes {
		if strings.HasSuffix(name, s) || name == s[1:] {
			return true
		}
	}
	return false
}

func previewID(label string) (string, bool) {
	id, ok := strings.CutPrefix(label, PreviewPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// splitHostPort lowercases host and separates an optional port. Bare IPv6
// addresses (more than one colon, no brackets) have no port.
func splitHostPort(host string) (string, int) {
	host = strings.ToLower(strings.TrimSpace(host))
	port := ""

	switch {
	case strings.HasPrefix(host, "["):
		end := strings.Index(host, "]")
		if end < 0 {
			return "", 0
		}
		rest := host[end+1:]
		host = host[1:end]
		if p, ok := strings.CutPrefix(rest, ":"); ok {
			port = p
		} else if rest != "" {
			return "", 0
		}
	case strings.Count(host, ":") == 1:
		host, port, _ = strings.Cut(host, ":")
	}

	host = strings.TrimSuffix(host, ".")

	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		n = 0
	}
	return host, n
}

// validHostname checks every label is non-empty, at most 63 characters and
// made of [a-z0-9-] without a leading or trailing hyphen.
func validHostname(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			ch := label[i]
			if (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') && ch != '-' {
				return false
			}
		}
	}
	return true
}

var reservedSubdomains = []string{"www", "app", "api", "admin", "preview", "dashboard", "auth"}

// ValidSubdomain reports whether label can be claimed as an organization
// subdomain: a single valid DNS label that is not reserved and does not use
// the preview convention.
func ValidSubdomain(label string) bool {
	if label != strings.ToLower(label) || strings.Contains(label, ".") {
		return false
	}
	if !validHostname(label) || strings.HasPrefix(label, PreviewPrefix) {
		return false
	}
	return !slices.Contains(reservedSubdomains, label)
}

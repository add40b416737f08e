package hostname

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default domain settings.
const (
	DefaultApex = "steeple.app"
)

// PortRange is an inclusive range of TCP ports.
type PortRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Contains reports whether port falls inside the range.
func (p PortRange) Contains(port int) bool {
	return port >= p.From && port <= p.To
}

// Config describes the domains the deployment answers on.
type Config struct {
	// Apex is the canonical marketing/app domain, tenants live one label below it.
	Apex string `yaml:"apex"`

	// Aliases are additional hostnames that serve the main application.
	Aliases []string `yaml:"aliases"`

	// PreviewSuffixes mark preview deployments, e.g. ".preview.steeple.app".
	PreviewSuffixes []string `yaml:"preview_suffixes"`

	// DevHosts are bare development hostnames such as localhost.
	DevHosts []string `yaml:"dev_hosts"`

	// DevPorts are ports that indicate a local development server.
	DevPorts []PortRange `yaml:"dev_ports"`
}

// ApplyDefaults fills unset fields and lowercases every hostname.
func (c *Config) ApplyDefaults() {
	if c.Apex == "" {
		c.Apex = DefaultApex
	}
	c.Apex = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(c.Apex)), ".")

	if c.Aliases == nil {
		c.Aliases = []string{"www." + c.Apex, "app." + c.Apex}
	}
	if c.PreviewSuffixes == nil {
		c.PreviewSuffixes = []string{".preview." + c.Apex}
	}
	if c.DevHosts == nil {
		c.DevHosts = []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"}
	}
	if c.DevPorts == nil {
		c.DevPorts = []PortRange{
			{From: 3000, To: 3999},
			{From: 5173, To: 5173},
			{From: 8080, To: 8080},
		}
	}

	c.Aliases = slices.Clone(c.Aliases)
	c.PreviewSuffixes = slices.Clone(c.PreviewSuffixes)
	c.DevHosts = slices.Clone(c.DevHosts)

	for i, a := range c.Aliases {
		c.Aliases[i] = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(a)), ".")
	}
	for i, s := range c.PreviewSuffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		c.PreviewSuffixes[i] = s
	}
	for i, h := range c.DevHosts {
		c.DevHosts[i] = strings.ToLower(strings.TrimSpace(h))
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if !validHostname(c.Apex) || strings.Count(c.Apex, ".") < 1 {
		return fmt.Errorf("apex %q must be a hostname with at least two labels", c.Apex)
	}
	for _, a := range c.Aliases {
		if !validHostname(a) {
			return fmt.Errorf("alias %q is not a valid hostname", a)
		}
	}
	for _, s := range c.PreviewSuffixes {
		if !validHostname(strings.TrimPrefix(s, ".")) {
			return fmt.Errorf("preview suffix %q is not a valid domain suffix", s)
		}
	}
	for _, p := range c.DevPorts {
		if p.From < 1 || p.To > 65535 || p.From > p.To {
			return fmt.Errorf("invalid development port range %d-%d", p.From, p.To)
		}
	}
	return nil
}

// LoadConfig reads a YAML domain configuration file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read domain config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse domain config %s: %w", path, err)
	}

	return cfg, nil
}

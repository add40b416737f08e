package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/hostname"
)

func TestDomainFlags_Classifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apex: example.church
aliases: [www.example.church]
dev_ports:
  - from: 4000
    to: 4999
`), 0o600))

	tests := []struct {
		name     string
		flags    DomainFlags
		wantApex string
		wantMain []string
		wantDev  string
	}{
		{
			name:     "defaults",
			wantApex: hostname.DefaultApex,
			wantMain: []string{"steeple.app", "www.steeple.app"},
		},
		{
			name:     "file",
			flags:    DomainFlags{Config: path},
			wantApex: "example.church",
			wantMain: []string{"example.church", "www.example.church"},
			wantDev:  "192.168.1.5:4100",
		},
		{
			name:     "flags override file",
			flags:    DomainFlags{Config: path, Apex: "Other.Church", DevPorts: []string{"8080"}},
			wantApex: "other.church",
			wantMain: []string{"other.church"},
			wantDev:  "192.168.1.5:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.flags.Classifier()
			require.NoError(t, err)
			require.Equal(t, tt.wantApex, c.Apex())
			for _, host := range tt.wantMain {
				require.True(t, c.IsMainDomain(host), host)
			}
			if tt.wantDev != "" {
				require.True(t, c.IsDevelopmentEnvironment(tt.wantDev), tt.wantDev)
			}
		})
	}
}

func TestDomainFlags_errors(t *testing.T) {
	_, err := (&DomainFlags{Config: filepath.Join(t.TempDir(), "missing.yaml")}).Classifier()
	require.Error(t, err)

	_, err = (&DomainFlags{DevPorts: []string{"abc"}}).Classifier()
	require.ErrorContains(t, err, "invalid development port range")

	_, err = (&DomainFlags{DevPorts: []string{"5000-4000"}}).Classifier()
	require.Error(t, err)
}

func TestParsePortRange(t *testing.T) {
	p, err := parsePortRange("3000-3999")
	require.NoError(t, err)
	require.Equal(t, hostname.PortRange{From: 3000, To: 3999}, p)

	p, err = parsePortRange(" 8080 ")
	require.NoError(t, err)
	require.Equal(t, hostname.PortRange{From: 8080, To: 8080}, p)
}

func TestPostgresStoreFlags_Validate(t *testing.T) {
	require.Error(t, (&PostgresStoreFlags{}).Validate())
	require.NoError(t, (&PostgresStoreFlags{ConnString: "postgres://localhost/steeple"}).Validate())
}

func TestServeCmd_tokenSecret(t *testing.T) {
	c := &ServeCmd{TokenSecret: "short"}
	_, err := c.tokenSecret(zerolog.Nop())
	require.Error(t, err)

	c.TokenSecret = "0123456789abcdef0123456789abcdef"
	secret, err := c.tokenSecret(zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, []byte(c.TokenSecret), secret)

	c.TokenSecret = ""
	secret, err = c.tokenSecret(zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, secret, 32)
}

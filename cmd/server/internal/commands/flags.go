package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wolfeidau/steeple/internal/hostname"
	postgresstore "github.com/wolfeidau/steeple/internal/store/postgres"
	redisstore "github.com/wolfeidau/steeple/internal/store/redis"
)

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"STEEPLE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
		AutoMigrate:     s.AutoMigrate,
	}
}

// RedisFlags enables the organization lookup cache when Addr is set.
type RedisFlags struct {
	Addr      string        `help:"redis address for the organization cache, empty disables it" default:"" env:"STEEPLE_REDIS_ADDR"`
	Password  string        `help:"redis password" default:"" env:"STEEPLE_REDIS_PASSWORD"`
	DB        int           `help:"redis database number" default:"0" env:"STEEPLE_REDIS_DB"`
	TTL       time.Duration `help:"organization cache TTL" default:"5m" env:"STEEPLE_REDIS_TTL"`
	KeyPrefix string        `help:"cache key prefix" default:"steeple" env:"STEEPLE_REDIS_KEY_PREFIX"`
}

func (r *RedisFlags) Enabled() bool {
	return r.Addr != ""
}

func (r *RedisFlags) config() redisstore.Config {
	return redisstore.Config{
		Addr:      r.Addr,
		Password:  r.Password,
		DB:        r.DB,
		TTL:       r.TTL,
		KeyPrefix: r.KeyPrefix,
	}
}

// DomainFlags configure the Domain Classifier. Flags override values loaded
// from the YAML file named by Config.
type DomainFlags struct {
	Config          string   `help:"path to a YAML domain configuration file" default:"" env:"STEEPLE_DOMAIN_CONFIG"`
	Apex            string   `help:"apex domain tenants live under" default:"" env:"STEEPLE_DOMAIN_APEX"`
	Aliases         []string `help:"additional hostnames serving the main application" env:"STEEPLE_DOMAIN_ALIASES"`
	PreviewSuffixes []string `help:"host suffixes marking preview deployments" env:"STEEPLE_DOMAIN_PREVIEW_SUFFIXES"`
	DevHosts        []string `help:"development hostnames" env:"STEEPLE_DOMAIN_DEV_HOSTS"`
	DevPorts        []string `help:"development port ranges, e.g. 3000-3999 or 8080" env:"STEEPLE_DOMAIN_DEV_PORTS"`
}

func (d *DomainFlags) load() (hostname.Config, error) {
	var cfg hostname.Config
	if d.Config != "" {
		var err error
		cfg, err = hostname.LoadConfig(d.Config)
		if err != nil {
			return cfg, err
		}
	}

	if d.Apex != "" {
		cfg.Apex = d.Apex
	}
	if len(d.Aliases) > 0 {
		cfg.Aliases = d.Aliases
	}
	if len(d.PreviewSuffixes) > 0 {
		cfg.PreviewSuffixes = d.PreviewSuffixes
	}
	if len(d.DevHosts) > 0 {
		cfg.DevHosts = d.DevHosts
	}
	if len(d.DevPorts) > 0 {
		ports := make([]hostname.PortRange, 0, len(d.DevPorts))
		for _, raw := range d.DevPorts {
			p, err := parsePortRange(raw)
			if err != nil {
				return cfg, err
			}
			ports = append(ports, p)
		}
		cfg.DevPorts = ports
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Classifier builds the Domain Classifier from the file and flags.
func (d *DomainFlags) Classifier() (*hostname.Classifier, error) {
	cfg, err := d.load()
	if err != nil {
		return nil, err
	}
	return hostname.New(cfg)
}

func parsePortRange(raw string) (hostname.PortRange, error) {
	from, to, isRange := strings.Cut(strings.TrimSpace(raw), "-")
	if !isRange {
		to = from
	}
	f, err := strconv.Atoi(from)
	if err != nil {
		return hostname.PortRange{}, fmt.Errorf("invalid development port range %q", raw)
	}
	t, err := strconv.Atoi(to)
	if err != nil {
		return hostname.PortRange{}, fmt.Errorf("invalid development port range %q", raw)
	}
	return hostname.PortRange{From: f, To: t}, nil
}

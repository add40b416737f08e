package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrCredentialNotFound is returned when no token is stored for a server.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrTokenExpired is returned when the stored token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Credential is a bearer token obtained from a server's /auth/token endpoint.
type Credential struct {
	Server    string    `json:"server"`
	Email     string    `json:"email"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is unusable at now.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Config represents the credentials configuration file.
type Config struct {
	Version     int                   `json:"version"`
	Credentials map[string]Credential `json:"credentials"`
}

// Store manages credential storage on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a new credential store.
// If baseDir is empty, uses ~/.steeple/credentials/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".steeple", "credentials")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	store := &Store{baseDir: baseDir}

	// Initialize config if it doesn't exist
	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential store initialized")

	return store, nil
}

// Save stores cred, replacing any token held for the same server.
func (s *Store) Save(cred Credential) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	cred.Server = serverKey(cred.Server)
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	cfg.Credentials[cred.Server] = cred

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().
		Str("server", cred.Server).
		Str("email", cred.Email).
		Time("expiresAt", cred.ExpiresAt).
		Msg("credential saved")

	return nil
}

// Get returns the credential for server.
func (s *Store) Get(server string) (*Credential, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	cred, ok := cfg.Credentials[serverKey(server)]
	if !ok {
		return nil, ErrCredentialNotFound
	}

	return &cred, nil
}

// List returns all stored credentials ordered by server.
func (s *Store) List() ([]Credential, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	credentials := make([]Credential, 0, len(cfg.Credentials))
	for _, cred := range cfg.Credentials {
		credentials = append(credentials, cred)
	}
	sort.Slice(credentials, func(i, j int) bool {
		return credentials[i].Server < credentials[j].Server
	})

	return credentials, nil
}

// Delete removes the credential for server.
func (s *Store) Delete(server string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	key := serverKey(server)
	if _, ok := cfg.Credentials[key]; !ok {
		return ErrCredentialNotFound
	}
	delete(cfg.Credentials, key)

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().Str("server", key).Msg("credential deleted")

	return nil
}

// ensureConfig creates an empty config if it doesn't exist.
func (s *Store) ensureConfig() error {
	configPath := filepath.Join(s.baseDir, "config.json")

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil {
		return nil // Config exists
	}

	// Create empty config
	cfg := &Config{
		Version:     1,
		Credentials: make(map[string]Credential),
	}

	return s.saveConfig(cfg)
}

// loadConfig reads the config file.
func (s *Store) loadConfig() (*Config, error) {
	configPath := filepath.Join(s.baseDir, "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Credentials == nil {
		cfg.Credentials = make(map[string]Credential)
	}

	return &cfg, nil
}

// saveConfig writes the config atomically with 0600 permissions.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(s.baseDir, "config.json")
	tmpPath := configPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

func serverKey(server string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(server)), "/")
}

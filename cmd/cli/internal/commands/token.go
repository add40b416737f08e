package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/cmd/cli/internal/credentials"
	"github.com/wolfeidau/steeple/internal/login"
)

type TokenCmd struct {
	ServerFlags `embed:""`

	Email    string `help:"account email" required:"" env:"STEEPLE_EMAIL"`
	Password string `help:"account password" required:"" env:"STEEPLE_PASSWORD"`
	NoSave   bool   `help:"print the token without storing it" default:"false"`
}

func (c *TokenCmd) Run(ctx context.Context) error {
	tok, err := requestToken(ctx, c.Server, c.Email, c.Password)
	if err != nil {
		return err
	}

	if !c.NoSave {
		store, err := credentials.NewStore(c.CredentialsDir)
		if err != nil {
			return err
		}
		if err := store.Save(credentials.Credential{
			Server:    c.Server,
			Email:     c.Email,
			UserID:    tok.UserID,
			Token:     tok.Token,
			ExpiresAt: tok.ExpiresAt,
		}); err != nil {
			return err
		}
		log.Debug().Str("server", c.Server).Msg("token stored")
	}

	if c.JSON {
		return printJSON(tok)
	}
	fmt.Fprintln(stdout, tok.Token)
	return nil
}

func requestToken(ctx context.Context, server, email, password string) (*login.TokenResponse, error) {
	body, err := json.Marshal(login.TokenRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(server, "/") + "/auth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to request token: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var tok login.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tok, nil
}

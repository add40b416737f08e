package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/steeple/cmd/cli/internal/credentials"
)

type LogoutCmd struct {
	Server         string `help:"Server URL" default:"http://localhost:8080" env:"STEEPLE_SERVER"`
	CredentialsDir string `help:"directory holding stored tokens" default:"" env:"STEEPLE_CREDENTIALS_DIR"`
}

func (c *LogoutCmd) Run(ctx context.Context) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return err
	}
	if err := store.Delete(c.Server); err != nil {
		if errors.Is(err, credentials.ErrCredentialNotFound) {
			fmt.Fprintf(stdout, "No token stored for %s\n", c.Server)
			return nil
		}
		return err
	}
	fmt.Fprintf(stdout, "Removed token for %s\n", c.Server)
	return nil
}
